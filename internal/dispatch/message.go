package dispatch

import "telex/internal/services/smtp"

// BuildMessage assembles the outgoing mail for one routed text.
func BuildMessage(from string, decision Decision, body string) smtp.Message {
	return smtp.Message{
		From:       from,
		Recipients: append([]string(nil), decision.Recipients...),
		Subject:    decision.Subject,
		Body:       body,
	}
}
