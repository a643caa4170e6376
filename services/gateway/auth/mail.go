// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package auth

import (
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/AleutianAI/AleutianWidget/pkg/logging"
)

// MailSender delivers a verification code to an address.
type MailSender interface {
	SendVerification(to, code string) error
}

// SMTPSender delivers over plain SMTP with STARTTLS negotiated by the
// server. Credentials are optional; many internal relays accept unauthenticated
// submission from the service network.
type SMTPSender struct {
	Host string
	Port string
	From string
	Auth smtp.Auth
}

func (s *SMTPSender) SendVerification(to, code string) error {
	addr := net.JoinHostPort(s.Host, s.Port)
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: Verify your Aleutian account",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Your verification code is: " + code,
		"",
		"The code expires shortly. If you did not request it, ignore this message.",
	}, "\r\n")
	if err := smtp.SendMail(addr, s.Auth, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", s.Host, err)
	}
	return nil
}

// NopSender swallows mail. Used when EMAIL_ENABLED is off; the send is
// logged at debug so integration tests can confirm the path was reached
// without standing up a relay.
type NopSender struct {
	Logger *logging.Logger
}

func (n *NopSender) SendVerification(to, code string) error {
	if n.Logger != nil {
		n.Logger.Debug("verification_email_suppressed", "to", to)
	}
	return nil
}
