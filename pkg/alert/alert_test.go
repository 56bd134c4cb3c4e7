package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/verkkograph/verkko/pkg/config"
)

func TestNewReturnsNoOpWhenDisabled(t *testing.T) {
	alerter := New(config.AlertConfig{Enabled: false})
	assert.IsType(t, &NoOpAlerter{}, alerter)
	assert.NoError(t, alerter.Alert("subject", "message"))
}

func TestNewReturnsEmailAlerterWhenEnabled(t *testing.T) {
	alerter := New(config.AlertConfig{
		Enabled:  true,
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		From:     "verkko@example.com",
		To:       []string{"ops@example.com"},
	})
	assert.IsType(t, &EmailAlerter{}, alerter)
}

func TestEmailAlerterSkipsWhenDisabled(t *testing.T) {
	alerter := NewEmailAlerter(config.AlertConfig{Enabled: false})
	assert.NoError(t, alerter.Alert("subject", "message"))
}
