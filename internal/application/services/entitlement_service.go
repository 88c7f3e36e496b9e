package services

import (
	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
)

// msgUpgradeRequired replaces assessment detail for identities whose tier
// does not cover it.
const msgUpgradeRequired = "Your assessment is ready. Please sign in and upgrade to view the full results."

// EntitlementGate projects a normalized result onto what the requesting
// identity is allowed to see, and decides whether the turn may be persisted.
type EntitlementGate struct{}

// NewEntitlementGate creates a new entitlement gate.
func NewEntitlementGate() *EntitlementGate {
	return &EntitlementGate{}
}

// Apply returns the externally visible projection of result for the identity
// and whether an assessment log record may be written. The original result is
// never mutated.
//
// PAID and ONE_TIME identities see everything. Everyone else sees assessment
// detail only when triage is SEVERE: an emergency is never hidden behind a
// paywall.
func (g *EntitlementGate) Apply(result *entities.AssessmentResult, identity entities.Identity) (*entities.AssessmentResult, bool) {
	projection := result.Clone()
	if !projection.IsAssessment {
		return projection, false
	}

	if identity.Tier.Entitled() {
		return projection, true
	}

	if projection.IsSevere() {
		// Safety override: full visibility and an audit record regardless of tier.
		return projection, true
	}

	projection.PossibleConditions = msgUpgradeRequired
	projection.Confidence = nil
	projection.TriageLevel = nil
	projection.CareRecommendation = nil
	projection.Assessment = nil
	projection.RequiresUpgrade = true
	return projection, false
}
