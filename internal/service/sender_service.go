package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"agendalo/internal/config"
	"agendalo/internal/db"
)

const dispatchBatchSize = 50

// SenderService drains the message queue and delivers through the channel
// each row hints at: SendGrid for email, Twilio for SMS. Push rows are
// acknowledged without delivery until a push provider exists.
type SenderService struct {
	tx    TxRunner
	store NotificationStore
	cfg   *config.Config
	log   zerolog.Logger
}

func NewSenderService(tx TxRunner, store NotificationStore, cfg *config.Config, log zerolog.Logger) *SenderService {
	return &SenderService{tx: tx, store: store, cfg: cfg, log: log}
}

// DispatchQueued claims one batch of due messages and attempts delivery.
// The claim runs in a transaction so concurrent runs skip locked rows.
func (s *SenderService) DispatchQueued(ctx context.Context) error {
	var batch []db.QueuedMessage
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		batch, err = s.store.DequeueBatch(txCtx, dispatchBatchSize)
		if err != nil {
			return err
		}
		for _, msg := range batch {
			if sendErr := s.deliver(msg); sendErr != nil {
				s.log.Error().Err(sendErr).Str("channel", msg.Channel).Str("to", msg.ToAddress).Msg("delivery failed")
				if err := s.store.MarkFailed(txCtx, msg.ID); err != nil {
					return err
				}
				continue
			}
			if err := s.store.MarkSent(txCtx, msg.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("dispatching queued messages: %w", err)
	}
	if len(batch) > 0 {
		s.log.Info().Int("count", len(batch)).Msg("dispatched notification batch")
	}
	return nil
}

type messagePayload struct {
	Type    string `json:"type"`
	Service string `json:"service"`
	StartAt string `json:"start_at"`
	Message string `json:"message"`
}

func (s *SenderService) deliver(msg db.QueuedMessage) error {
	var payload messagePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}

	body := payload.Message
	if payload.Service != "" {
		body = fmt.Sprintf("%s\nServicio: %s\nHorario: %s", payload.Message, payload.Service, payload.StartAt)
	}

	switch msg.Channel {
	case channelEmail:
		return s.sendEmail(msg.ToAddress, "Novedades de tu reserva", body)
	case channelSMS:
		return s.sendSMS(msg.ToAddress, body)
	case channelPush:
		// No push provider wired yet; acknowledge so the queue drains.
		return nil
	default:
		return fmt.Errorf("unknown channel %q", msg.Channel)
	}
}

func (s *SenderService) sendEmail(to, subject, body string) error {
	if s.cfg.SendgridAPIKey == "" || s.cfg.SendgridFromEmail == "" {
		return fmt.Errorf("sendgrid credentials not configured")
	}

	from := mail.NewEmail(s.cfg.SendgridFromName, s.cfg.SendgridFromEmail)
	message := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), body, "")

	client := sendgrid.NewSendClient(s.cfg.SendgridAPIKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("sending email via sendgrid: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

func (s *SenderService) sendSMS(to, body string) error {
	if s.cfg.TwilioAccountSID == "" || s.cfg.TwilioAuthToken == "" || s.cfg.TwilioFromNumber == "" {
		return fmt.Errorf("twilio credentials not configured")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: s.cfg.TwilioAccountSID,
		Password: s.cfg.TwilioAuthToken,
	})

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.cfg.TwilioFromNumber)
	params.SetBody(body)

	if _, err := client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("sending SMS via twilio: %w", err)
	}
	return nil
}
