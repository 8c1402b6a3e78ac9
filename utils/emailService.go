package utils

import (
	"fmt"
	"log"

	"scw/config"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendEmail delivers a plain-text/HTML mail through SendGrid. A missing API
// key disables mail entirely (local development); delivery failures are
// logged, never surfaced to the request that triggered them.
func SendEmail(toName, toEmail, subject, htmlBody string) error {
	if config.AppConfig.SendgridAPIKey == "" {
		log.Printf("--- Email disabled, skipping ---\nTo: %s\nSubject: %s", toEmail, subject)
		return nil
	}

	from := mail.NewEmail("Course Platform", config.AppConfig.EmailSender)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, htmlBody, htmlBody)

	client := sendgrid.NewSendClient(config.AppConfig.SendgridAPIKey)
	resp, err := client.Send(message)
	if err != nil {
		log.Printf("Error sending email to %s: %v", toEmail, err)
		return err
	}
	if resp.StatusCode >= 400 {
		log.Printf("Failed to send email to %s, status %d: %s", toEmail, resp.StatusCode, resp.Body)
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

// SendTicketAssignedEmail notifies a staff member that a support ticket has
// been assigned to them.
func SendTicketAssignedEmail(toName, toEmail, subject string, ticketID uint) {
	body := fmt.Sprintf(`
	<html>
	<body style="font-family: Arial, sans-serif;">
		<p>Hello %s,</p>
		<p>Support ticket <strong>#%d</strong> has been assigned to you:</p>
		<p style="padding: 10px; background: #f4f4f4; border-left: 4px solid #00004D;">%s</p>
		<p>Please review it in the support dashboard.</p>
	</body>
	</html>`, toName, ticketID, subject)

	go func() {
		if err := SendEmail(toName, toEmail, fmt.Sprintf("Ticket #%d assigned to you", ticketID), body); err != nil {
			log.Printf("Error sending ticket assignment email for ticket %d: %v", ticketID, err)
		}
	}()
}
