package triage

// Crisis contact channels surfaced in safety messages. The critical message
// must always carry at least two staffed lines with phone numbers.
const (
	yorisoiHotline = "0120-279-338"
	tellLifeline   = "03-5774-0992"
	emergencyLine  = "119"
)

const criticalSafetyMessage = `**I hear you, and I want you to know that you are not alone.**

Please reach out to someone who can help right now:

- **Yorisoi Hotline:** ` + yorisoiHotline + ` (24/7, multilingual)
- **TELL Lifeline:** ` + tellLifeline + ` (English)
- **Emergency:** ` + emergencyLine + `

Your feelings are valid. Having these thoughts does not make you a bad mother — it means you need and deserve support. A trained counselor is ready to listen right now.`

const elevatedSafetyMessage = `I can hear that you're going through a really difficult time, and I want you to know that what you're feeling is more common than you might think.

**You deserve support.** Many mothers experience these feelings, and there is effective help available.

I'd gently encourage you to:
1. Talk to your doctor or midwife at your next appointment
2. Consider calling TELL Lifeline: ` + tellLifeline + ` for a confidential conversation
3. Visit your local 保健センター (health center) — they offer free postnatal support

Would you like to talk more about what you're experiencing?`

// SafetyMessage returns the deterministic escalation content for a risk
// level, or "" when no forced interjection is needed. Purely templated;
// the composer must emit a non-empty result before any generative content.
func SafetyMessage(level RiskLevel) string {
	switch level {
	case RiskCritical:
		return criticalSafetyMessage
	case RiskElevated:
		return elevatedSafetyMessage
	default:
		return ""
	}
}
