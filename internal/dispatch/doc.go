// Package dispatch turns extracted text into mail.
//
// A Router scans the configured routes in declaration order and the first
// route whose keyword occurs in the text decides the subject and recipients;
// text that matches nothing goes to the default recipient with the default
// subject. The Dispatcher worker pops text from the text queue, routes it,
// and hands one message per document to the mail transport. Delivery is
// at-most-once: a failed send is logged and dropped. Every successful send is
// followed by a cooldown that shutdown may cut short.
package dispatch
