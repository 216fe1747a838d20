package entitlements

import "strings"

type Plan string

const (
	PlanFree       Plan = "free"
	PlanStarter    Plan = "starter"
	PlanPro        Plan = "pro"
	PlanFranchise  Plan = "franchise"
	PlanEnterprise Plan = "enterprise"
)

// Unlimited marks a limit without a cap.
const Unlimited = -1

type Limits struct {
	MonthlyAPICalls int  `json:"monthly_api_calls"`
	MonthlyCommands int  `json:"monthly_commands"`
	TeamMembers     int  `json:"team_members"`
	WhiteLabel      bool `json:"white_label"`
	APIAccess       bool `json:"api_access"`
}

type Features struct {
	APIAccess   bool `json:"api_access"`
	WhiteLabel  bool `json:"white_label"`
	TeamMembers int  `json:"team_members"`
}

var limits = map[Plan]Limits{
	PlanFree:       {MonthlyAPICalls: 100, MonthlyCommands: 10, TeamMembers: 1},
	PlanStarter:    {MonthlyAPICalls: 1000, MonthlyCommands: 50, TeamMembers: 1},
	PlanPro:        {MonthlyAPICalls: 10000, MonthlyCommands: 500, TeamMembers: 5, APIAccess: true},
	PlanFranchise:  {MonthlyAPICalls: 100000, MonthlyCommands: 5000, TeamMembers: 25, WhiteLabel: true, APIAccess: true},
	PlanEnterprise: {MonthlyAPICalls: Unlimited, MonthlyCommands: Unlimited, TeamMembers: Unlimited, WhiteLabel: true, APIAccess: true},
}

// ParsePlan maps a plan or product name ("Pro Monthly", "AgencyOS Franchise")
// to a known plan. ok is false when no plan word is present.
func ParsePlan(raw string) (Plan, bool) {
	for _, word := range strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '/' || r == '(' || r == ')'
	}) {
		if _, ok := limits[Plan(word)]; ok {
			return Plan(word), true
		}
	}
	return "", false
}

// NormalizePlan is ParsePlan with a fallback plan.
func NormalizePlan(raw string, fallback Plan) Plan {
	if p, ok := ParsePlan(raw); ok {
		return p
	}
	return fallback
}

// LimitsFor returns the limits of plan; unknown plans get starter limits.
func LimitsFor(plan Plan) Limits {
	if l, ok := limits[plan]; ok {
		return l
	}
	return limits[PlanStarter]
}

func (l Limits) Features() Features {
	return Features{APIAccess: l.APIAccess, WhiteLabel: l.WhiteLabel, TeamMembers: l.TeamMembers}
}

func Rank(plan Plan) int {
	switch plan {
	case PlanEnterprise:
		return 4
	case PlanFranchise:
		return 3
	case PlanPro:
		return 2
	case PlanStarter:
		return 1
	default:
		return 0
	}
}
