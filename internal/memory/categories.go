package memory

// Category describes one long-term memory category the provider organizes
// facts under.
type Category struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PerinatalCategories is the fixed taxonomy this companion files memories
// under. It is sent with every memorize call so the provider's extraction
// stays consistent across sessions.
var PerinatalCategories = []Category{
	{
		Name:        "mood_patterns",
		Description: "Daily mood entries, emotional trends, sleep quality, and energy levels tracked over time.",
	},
	{
		Name:        "triggers",
		Description: "Identified triggers for mood changes — situations, times of day, activities, or thoughts that affect emotional state.",
	},
	{
		Name:        "coping_strategies",
		Description: "Coping strategies the mother has tried, what helped, what did not help, and preferred self-care activities.",
	},
	{
		Name:        "baby_milestones",
		Description: "Baby age, developmental milestones, feeding patterns, sleep schedule, and caregiving challenges.",
	},
	{
		Name:        "screening_history",
		Description: "EPDS scores, PHQ-2 results, and crisis level history over time for longitudinal tracking.",
	},
	{
		Name:        "personal_context",
		Description: "User background, support network, living situation, work status, relationship dynamics, and cultural context.",
	},
	{
		Name:        "conversation_insights",
		Description: "Key themes, recurring concerns, breakthroughs, and important revelations from chat sessions.",
	},
}
