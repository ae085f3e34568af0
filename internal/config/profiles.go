package config

// Profile is an agent persona the session can be started with.
type Profile struct {
	ID           string
	Name         string
	Role         string
	Description  string
	Instructions string
	Available    bool
}

const DefaultProfileID = "business_analyst"

const businessAnalystInstructions = `
You are an expert Business Analyst Intake Agent (IA). 
Your goal is to conduct a structured project intake interview to build a Project Charter, Requirements, and User Stories.

PHASE 1: CHARTER
- Ask for the Problem Statement.
- Ask for Business Objectives and Success Metrics.
- Identify Stakeholders.
- Clarify Constraints, Budget, and Timeline.

PHASE 2: REQUIREMENTS & STORIES
- Ask "Who are the users?" (Personas)
- For each persona, ask "What do they need to do?" (User Stories).
- Dig for Acceptance Criteria ("How will we know this is working?").
- Ask about functional and non-functional requirements (Performance, Security).

BEHAVIOR:
- Ask one or two questions at a time.
- Be progressive. Don't ask for everything at once.
- If the user is vague, propose options.
`

var profiles = []Profile{
	{
		ID:           DefaultProfileID,
		Name:         "Business Analyst",
		Role:         "Requirements Specialist",
		Description:  "Conducts structured project intake, gathering detailed requirements, user stories, and charter definitions.",
		Instructions: businessAnalystInstructions,
		Available:    true,
	},
	{
		ID:           "value_office",
		Name:         "Value Office",
		Role:         "Value Architect",
		Description:  "Focuses on ROI analysis, strategic alignment, and defining value realization metrics for the portfolio.",
		Instructions: "You are a Value Office Agent. Focus on ROI and Strategy.",
	},
	{
		ID:           "product_manager",
		Name:         "Product Manager",
		Role:         "Product Owner",
		Description:  "Builds product roadmaps, prioritizes features based on market fit, and defines customer journeys.",
		Instructions: "You are a Product Manager Agent. Focus on Roadmaps and Market Fit.",
	},
}

func Profiles() []Profile {
	return append([]Profile(nil), profiles...)
}

// GetProfile returns an available profile by id.
func GetProfile(id string) (Profile, bool) {
	for _, profile := range profiles {
		if profile.ID == id && profile.Available {
			return profile, true
		}
	}
	return Profile{}, false
}
