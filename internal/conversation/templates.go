package conversation

import (
	"context"
	"strings"
)

// Topic keys for the local deterministic responder.
type Topic string

const (
	TopicOverwhelmed Topic = "overwhelmed"
	TopicSleep       Topic = "sleep"
	TopicAnxiety     Topic = "anxiety"
	TopicBonding     Topic = "bonding"
	TopicSadness     Topic = "sadness"
	TopicGeneral     Topic = "general"
)

// topicKeywords maps topics to their trigger phrases, checked in order.
var topicKeywords = []struct {
	topic    Topic
	keywords []string
}{
	{TopicOverwhelmed, []string{"overwhelm", "too much", "can't cope"}},
	{TopicSleep, []string{"sleep", "tired", "exhausted"}},
	{TopicAnxiety, []string{"worr", "anxious", "panic", "scared"}},
	{TopicBonding, []string{"disconnect", "bond", "love", "feel nothing"}},
	{TopicSadness, []string{"cry", "sad", "depressed", "down"}},
}

// DetectTopic picks the response topic for a message by keyword match.
func DetectTopic(message string) Topic {
	lower := strings.ToLower(message)
	for _, entry := range topicKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.topic
			}
		}
	}
	return TopicGeneral
}

var topicResponses = map[Topic]string{
	TopicOverwhelmed: `I understand that feeling of being overwhelmed. It's one of the most common experiences for new mothers, and it doesn't mean you're failing — it means you're carrying a lot.

**Some things that might help right now:**

1. **Take one thing at a time** — You don't have to do everything. What's the one most important thing right now?
2. **Ask for help** — Whether it's your partner, family, or a friend, let someone take something off your plate
3. **Lower the bar** — The house doesn't need to be perfect. Your baby needs you, not a spotless home
4. **Breathe** — Try 4-7-8 breathing: inhale 4 seconds, hold 7, exhale 8

**Remember:** Feeling overwhelmed is not a sign of weakness. It's a sign you need support, and that's completely okay.

Would you like to talk about what specifically feels most overwhelming?`,

	TopicSleep: `Sleep deprivation is one of the hardest parts of new motherhood, and it can make everything else feel so much harder. Your exhaustion is real and valid.

**Sleep strategies that may help:**

1. **Sleep when baby sleeps** — Even a 20-minute nap helps
2. **Share night duties** — If possible, alternate feeding shifts with your partner
3. **Create a wind-down ritual** — Dim lights 30 minutes before bed, avoid screens
4. **Nap without guilt** — Rest is productive. Your baby needs a rested mama
5. **Ask for a "sleep shift"** — Have someone watch baby for a 3-hour block so you can deep sleep

**Important:** Persistent difficulty sleeping even when baby sleeps can be a sign of postpartum anxiety. If this is happening, mention it to your doctor.

How many hours are you getting? I'm here to help brainstorm solutions.`,

	TopicAnxiety: `It sounds like anxiety is weighing heavily on you. New motherhood can trigger worries that feel constant and overwhelming. You're not alone in this.

**Understanding postpartum anxiety:**
- It's just as common as postpartum depression
- Intrusive thoughts are a symptom, not reality
- Having scary thoughts doesn't mean you'll act on them

**Grounding techniques for right now:**

1. **5-4-3-2-1 Method:** Name 5 things you see, 4 you hear, 3 you touch, 2 you smell, 1 you taste
2. **Box breathing:** Inhale 4 counts, hold 4, exhale 4, hold 4
3. **Cold water:** Hold ice or splash cold water on your wrists
4. **Name it:** "This is anxiety. It's uncomfortable but it will pass."

**When to seek help:** If worries are persistent, interfere with sleep, or make you avoid activities, talk to your healthcare provider. Postpartum anxiety is very treatable.

What thoughts are troubling you most? I'm here to listen.`,

	TopicBonding: `Thank you for being honest about this. Not feeling an instant bond or connection with your baby is more common than people talk about — and it does NOT mean you're a bad mother.

**What you should know:**

- Bonding is a process, not a moment. For many mothers, it builds gradually over weeks or months
- Hormonal changes, exhaustion, and stress can all affect bonding
- Difficulty bonding is a recognized symptom of postpartum depression, and it's treatable
- Your baby's needs are being met — that IS love in action

**Things that can help:**

1. **Skin-to-skin contact** — Hold baby against your bare chest
2. **Eye contact during feeding** — Even brief moments of connection matter
3. **Talk or sing** — Your voice is uniquely comforting to your baby
4. **Be patient with yourself** — Bonding doesn't have a deadline

Would you like to talk more about how you're feeling? There's no judgment here.`,

	TopicSadness: `I hear you, and it takes courage to share these feelings. Sadness and crying after birth are very common — your body and emotions are going through enormous changes.

**Understanding your tears:**

- **Baby blues** (first 2 weeks): Mood swings, crying, irritability — affects up to 80% of mothers
- **Postpartum depression** (persists beyond 2 weeks): Persistent sadness, loss of interest, changes in sleep/appetite
- Both are valid. Both deserve attention and care.

**What might help right now:**

1. **Let yourself cry** — Tears are your body's way of releasing stress
2. **Talk to someone** — A partner, friend, or the Kokoro chat (that's me!)
3. **Get outside** — Even 10 minutes of sunlight and fresh air can help
4. **Move gently** — A short walk or stretching releases mood-boosting endorphins

**If these feelings last more than 2 weeks**, please consider taking our EPDS self-check or talking to your doctor. PPD is common (affecting 1 in 7 mothers) and very treatable.

How long have you been feeling this way?`,

	TopicGeneral: `Thank you for sharing that with me. I'm here to listen and support you.

As a new mother, you're navigating one of life's biggest transitions. Whatever you're feeling right now — whether it's joy, exhaustion, worry, or something you can't quite name — it's valid.

**Some ways I can help:**

- Talk through what you're feeling
- Share coping strategies and self-care techniques
- Help you understand common postpartum experiences
- Guide you to the EPDS self-check if you'd like
- Connect you with professional resources

**Remember:** Asking for help is a sign of strength, not weakness. You're already doing something positive by reaching out.

What would be most helpful for you right now?`,
}

// LocalResponse returns the deterministic supportive response for a message.
// Never empty.
func LocalResponse(message string) string {
	return topicResponses[DetectTopic(message)]
}

// LocalResponder is the chain's guaranteed last resort: a StreamProvider
// that selects a templated response by topic and never fails or touches
// the network. It streams line by line so callers still see incremental
// delivery.
type LocalResponder struct{}

// Name identifies the local responder in logs and metrics.
func (LocalResponder) Name() string { return "local" }

// StreamGenerate ignores the assembled prompt; topic selection runs on the
// raw user message, which the chain passes through instead.
func (LocalResponder) StreamGenerate(_ context.Context, message string) (TokenStream, error) {
	text := LocalResponse(message)
	lines := strings.SplitAfter(text, "\n")
	return newSliceStream(lines...), nil
}
