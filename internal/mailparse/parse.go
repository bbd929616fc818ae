// Package mailparse turns raw RFC 5322 messages into core emails. Bodies are
// decoded through go-message so that transfer encodings and charsets are
// handled before feature extraction sees the text.
package mailparse

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/textproto"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/mikey/spam-verdict/internal/core"
)

// NoTextPlaceholder is used as body when a message carries no text part
const NoTextPlaceholder = "[No text content found in message]"

var wordDecoder = &mime.WordDecoder{CharsetReader: charset.Reader}

// DecodeHeader decodes RFC 2047 encoded words, returning the input unchanged
// when it cannot be decoded.
func DecodeHeader(value string) string {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// Parse reads a message and returns its envelope fields and text body.
// Unknown charsets degrade to the raw bytes instead of failing.
func Parse(r io.Reader) (*core.Email, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	email := &core.Email{
		Headers: headerMap(&mr.Header),
	}

	if subject, err := mr.Header.Subject(); err == nil {
		email.Subject = subject
	} else {
		email.Subject = mr.Header.Get("Subject")
	}

	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		email.From = from[0].Address
	} else {
		email.From = mr.Header.Get("From")
	}

	if to, err := mr.Header.AddressList("To"); err == nil {
		for _, addr := range to {
			email.To = append(email.To, addr.Address)
		}
	}

	if id, err := mr.Header.MessageID(); err == nil {
		email.MessageID = id
	}

	if date, err := mr.Header.Date(); err == nil {
		email.ReceivedAt = date
	}

	body, err := textBody(mr)
	if err != nil {
		return nil, err
	}
	email.Body = body

	return email, nil
}

// textBody concatenates the text/plain parts, falling back to the first
// text/html part when there is no plain text.
func textBody(mr *mail.Reader) (string, error) {
	var plain strings.Builder
	var html string

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			if plain.Len() > 0 || html != "" {
				break
			}
			return "", fmt.Errorf("failed to read message part: %w", err)
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := h.ContentType()
		switch contentType {
		case "text/plain", "":
			b, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			if plain.Len() > 0 {
				plain.WriteString("\n")
			}
			plain.Write(b)
		case "text/html":
			if html != "" {
				continue
			}
			b, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			html = string(b)
		}
	}

	switch {
	case plain.Len() > 0:
		return plain.String(), nil
	case html != "":
		return html, nil
	default:
		return NoTextPlaceholder, nil
	}
}

func headerMap(h *mail.Header) map[string][]string {
	out := make(map[string][]string)
	fields := h.Fields()
	for fields.Next() {
		key := textproto.CanonicalMIMEHeaderKey(fields.Key())
		out[key] = append(out[key], fields.Value())
	}
	return out
}
