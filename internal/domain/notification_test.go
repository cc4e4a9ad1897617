package domain_test

import (
	"testing"

	"github.com/dispatchkit/notifyd/internal/domain"
)

func TestCreateNotificationRequest_Validate(t *testing.T) {
	valid := domain.CreateNotificationRequest{
		UserID:   "user-1",
		Channel:  domain.ChannelSMS,
		Provider: domain.ProviderConsoleSMS,
		Payload:  `{"to":"+905551234567","body":"hello"}`,
	}

	t.Run("valid request passes", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty user id", func(t *testing.T) {
		r := valid
		r.UserID = ""
		if err := r.Validate(); err != domain.ErrInvalidUserID {
			t.Fatalf("expected ErrInvalidUserID, got %v", err)
		}
	})

	t.Run("invalid channel", func(t *testing.T) {
		r := valid
		r.Channel = "fax"
		if err := r.Validate(); err != domain.ErrInvalidChannel {
			t.Fatalf("expected ErrInvalidChannel, got %v", err)
		}
	})

	t.Run("lowercase channel is rejected, not coerced", func(t *testing.T) {
		r := valid
		r.Channel = "sms"
		if err := r.Validate(); err != domain.ErrInvalidChannel {
			t.Fatalf("expected ErrInvalidChannel for lowercase input, got %v", err)
		}
	})

	t.Run("invalid provider", func(t *testing.T) {
		r := valid
		r.Provider = "carrier_pigeon"
		if err := r.Validate(); err != domain.ErrInvalidProvider {
			t.Fatalf("expected ErrInvalidProvider, got %v", err)
		}
	})

	t.Run("empty payload", func(t *testing.T) {
		r := valid
		r.Payload = ""
		if err := r.Validate(); err != domain.ErrInvalidPayload {
			t.Fatalf("expected ErrInvalidPayload, got %v", err)
		}
	})

	t.Run("negative max retries", func(t *testing.T) {
		r := valid
		neg := -1
		r.MaxRetries = &neg
		if err := r.Validate(); err != domain.ErrInvalidMaxRetries {
			t.Fatalf("expected ErrInvalidMaxRetries, got %v", err)
		}
	})

	t.Run("all valid channels accepted", func(t *testing.T) {
		for _, ch := range []domain.Channel{domain.ChannelSMS, domain.ChannelEmail, domain.ChannelPush} {
			r := valid
			r.Channel = ch
			if err := r.Validate(); err != nil {
				t.Fatalf("channel %q: expected no error, got %v", ch, err)
			}
		}
	})

	t.Run("all valid providers accepted", func(t *testing.T) {
		for _, p := range []domain.Provider{
			domain.ProviderGmail, domain.ProviderOutlook, domain.ProviderCustomSMTP,
			domain.ProviderTextbelt, domain.ProviderConsoleSMS, domain.ProviderFCM, domain.ProviderLocal,
		} {
			r := valid
			r.Provider = p
			if err := r.Validate(); err != nil {
				t.Fatalf("provider %q: expected no error, got %v", p, err)
			}
		}
	})
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{0: 20, -5: 20, 101: 20, 1: 1, 100: 100, 50: 50}
	for in, want := range cases {
		if got := domain.ClampLimit(in); got != want {
			t.Errorf("ClampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestClampOffset(t *testing.T) {
	if got := domain.ClampOffset(-1); got != 0 {
		t.Errorf("ClampOffset(-1) = %d, want 0", got)
	}
	if got := domain.ClampOffset(5); got != 5 {
		t.Errorf("ClampOffset(5) = %d, want 5", got)
	}
}
