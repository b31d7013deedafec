package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/deliverability/internal/domain"
)

func TestCampaignStatusForwardOnly(t *testing.T) {
	assert.True(t, domain.CampaignDraft.CanTransition(domain.CampaignScheduled))
	assert.True(t, domain.CampaignScheduled.CanTransition(domain.CampaignSending))
	assert.True(t, domain.CampaignSending.CanTransition(domain.CampaignSent))

	// Zero-recipient dispatch jumps straight to sent.
	assert.True(t, domain.CampaignScheduled.CanTransition(domain.CampaignSent))

	// No backwards moves.
	assert.False(t, domain.CampaignSending.CanTransition(domain.CampaignDraft))
	assert.False(t, domain.CampaignSending.CanTransition(domain.CampaignScheduled))
	assert.False(t, domain.CampaignSent.CanTransition(domain.CampaignSending))
	assert.False(t, domain.CampaignSent.CanTransition(domain.CampaignFailed))
	assert.False(t, domain.CampaignFailed.CanTransition(domain.CampaignDraft))

	// Per-recipient failures never fail a campaign mid-send.
	assert.False(t, domain.CampaignSending.CanTransition(domain.CampaignFailed))
}

func TestCampaignIsTerminal(t *testing.T) {
	c := &domain.Campaign{Status: domain.CampaignSending}
	assert.False(t, c.IsTerminal())
	c.Status = domain.CampaignSent
	assert.True(t, c.IsTerminal())
	c.Status = domain.CampaignFailed
	assert.True(t, c.IsTerminal())
}

func TestRecipientTerminalStatuses(t *testing.T) {
	assert.False(t, domain.RecipientPending.Terminal())
	assert.False(t, domain.RecipientConfirmed.Terminal())
	assert.True(t, domain.RecipientBounced.Terminal())
	assert.True(t, domain.RecipientComplained.Terminal())
	assert.True(t, domain.RecipientUnsubscribed.Terminal())
}

func TestDedicatedIPTransitions(t *testing.T) {
	assert.True(t, domain.IPNone.CanTransition(domain.IPProvisioning))
	assert.True(t, domain.IPProvisioning.CanTransition(domain.IPWarming))
	assert.True(t, domain.IPWarming.CanTransition(domain.IPActive))
	assert.True(t, domain.IPWarming.CanTransition(domain.IPSuspended))
	assert.True(t, domain.IPActive.CanTransition(domain.IPSuspended))

	// Suspended is terminal within this core.
	assert.False(t, domain.IPSuspended.CanTransition(domain.IPWarming))
	assert.False(t, domain.IPSuspended.CanTransition(domain.IPActive))

	// No skipping provisioning or warmup.
	assert.False(t, domain.IPNone.CanTransition(domain.IPActive))
	assert.False(t, domain.IPProvisioning.CanTransition(domain.IPActive))
}
