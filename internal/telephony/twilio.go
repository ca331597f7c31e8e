package telephony

import (
	"context"
	"errors"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioDialer places and ends calls through the Twilio REST API.
//
// The status callback URL is registered per call so Twilio posts lifecycle
// events (queued/ringing/answered/completed and friends) to our webhook
// endpoint; this adapter never tracks state itself.

type TwilioConfig struct {
	AccountSID string
	AuthToken  string

	// CallerID is the E.164 number presented on outbound calls.
	CallerID string

	// StatusCallbackURL is where Twilio delivers call status events.
	StatusCallbackURL string
}

type TwilioDialer struct {
	client *twilio.RestClient
	cfg    TwilioConfig
}

func NewTwilioDialer(cfg TwilioConfig) (*TwilioDialer, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("telephony: twilio credentials required")
	}
	if cfg.CallerID == "" {
		return nil, errors.New("telephony: caller id required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioDialer{client: client, cfg: cfg}, nil
}

func (d *TwilioDialer) Name() string { return "twilio" }

func (d *TwilioDialer) HealthCheck(ctx context.Context) error {
	// Fetching the account is the cheapest authenticated round trip.
	_, err := d.client.Api.FetchAccount(d.cfg.AccountSID)
	if err != nil {
		return &ProviderError{Provider: "twilio", Op: "health_check", Reason: err.Error(), Err: err}
	}
	return nil
}

func (d *TwilioDialer) PlaceCall(ctx context.Context, req PlaceCallRequest) (PlaceCallResult, error) {
	if req.To == "" {
		return PlaceCallResult{}, &ProviderError{Provider: "twilio", Op: "place_call", Reason: "destination number required"}
	}

	from := req.From
	if from == "" {
		from = d.cfg.CallerID
	}

	params := &twilioApi.CreateCallParams{}
	params.SetTo(req.To)
	params.SetFrom(from)
	if req.CallbackURL != "" {
		params.SetStatusCallback(req.CallbackURL)
		params.SetStatusCallbackEvent([]string{"initiated", "ringing", "answered", "completed"})
	}
	// Minimal TwiML: connect the agent leg once the lead answers.
	params.SetTwiml(`<Response><Pause length="1"/></Response>`)

	resp, err := d.client.Api.CreateCall(params)
	if err != nil {
		return PlaceCallResult{}, &ProviderError{Provider: "twilio", Op: "place_call", Reason: err.Error(), Err: err}
	}
	if resp.Sid == nil || *resp.Sid == "" {
		return PlaceCallResult{}, &ProviderError{Provider: "twilio", Op: "place_call", Reason: "provider returned no call sid"}
	}

	return PlaceCallResult{ExternalCallID: *resp.Sid, BridgeReference: *resp.Sid}, nil
}

func (d *TwilioDialer) Hangup(ctx context.Context, externalCallID string) error {
	if externalCallID == "" {
		return &ProviderError{Provider: "twilio", Op: "hangup", Reason: "external call id required"}
	}
	params := &twilioApi.UpdateCallParams{}
	params.SetStatus("completed")
	if _, err := d.client.Api.UpdateCall(externalCallID, params); err != nil {
		return &ProviderError{Provider: "twilio", Op: "hangup", Reason: err.Error(), Err: err}
	}
	return nil
}
