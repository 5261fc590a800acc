// Package preflight provides readiness checks for the filesystem paths and
// the mail server that telex depends on.
//
// These checks run in two contexts:
//   - The supervisor calls RunAll at startup and logs every failed check as
//     a warning; only configuration errors stop the daemon.
//   - The CLI "telex preflight" command renders every result.
package preflight
