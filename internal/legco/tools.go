package legco

import (
	"fmt"
	"math"

	"github.com/legco-tools/legco-search-mcp/internal/config"
)

// ConstraintKind enumerates the parameter constraint families.
type ConstraintKind int

const (
	// DateISO requires a real calendar date in YYYY-MM-DD form.
	DateISO ConstraintKind = iota
	// EnumOf requires exact, case-sensitive membership in Enum.
	EnumOf
	// IntRange requires a whole number within [Min, Max] where declared.
	IntRange
	// StringMaxLen accepts free text, sanitized and capped at MaxLen.
	StringMaxLen
)

// Constraint describes how one parameter is validated and sanitized.
type Constraint struct {
	Kind   ConstraintKind
	Enum   []string
	Min    *int
	Max    *int
	MaxLen int
}

// ParamSpec declares one tool parameter.
type ParamSpec struct {
	Name        string
	Description string
	Constraint  Constraint
	Default     any
}

// ToolDef is one registered tool: a name, a parameter schema, and the
// endpoint family it queries.
type ToolDef struct {
	Name        string
	Description string
	Params      []ParamSpec
}

// Tool names.
const (
	ToolVotingResults    = "search_voting_results"
	ToolBills            = "search_bills"
	ToolQuestions        = "search_questions"
	ToolHansard          = "search_hansard"
	ToolMeetingSummaries = "search_meeting_summaries"
)

func intPtr(v int) *int { return &v }

func textParam(name, description string) ParamSpec {
	return ParamSpec{
		Name:        name,
		Description: description,
		Constraint:  Constraint{Kind: StringMaxLen, MaxLen: config.MaxTextLength},
	}
}

func dateParam(name, description string) ParamSpec {
	return ParamSpec{
		Name:        name,
		Description: description,
		Constraint:  Constraint{Kind: DateISO},
	}
}

// pagingParams are shared by every OData-backed tool.
func pagingParams() []ParamSpec {
	return []ParamSpec{
		{
			Name:        "top",
			Description: "Number of records to return",
			Constraint:  Constraint{Kind: IntRange, Min: intPtr(1), Max: intPtr(config.MaxTop)},
			Default:     config.DefaultTop,
		},
		{
			Name:        "skip",
			Description: "Number of records to skip",
			Constraint:  Constraint{Kind: IntRange, Min: intPtr(0)},
			Default:     config.DefaultSkip,
		},
		{
			Name:        "format",
			Description: "Return format",
			Constraint:  Constraint{Kind: EnumOf, Enum: []string{"json", "xml"}},
			Default:     "json",
		},
	}
}

// Tools returns the static tool table. The slice and its contents are
// treated as immutable after startup.
func Tools() []ToolDef {
	return []ToolDef{
		{
			Name:        ToolVotingResults,
			Description: "Search voting results from LegCo meetings",
			Params: append([]ParamSpec{
				{
					Name:        "meeting_type",
					Description: "Type of meeting",
					Constraint: Constraint{Kind: EnumOf, Enum: []string{
						"Council Meeting", "House Committee", "Finance Committee",
						"Establishment Subcommittee", "Public Works Subcommittee",
					}},
				},
				dateParam("start_date", "Start date in YYYY-MM-DD format"),
				dateParam("end_date", "End date in YYYY-MM-DD format"),
				textParam("member_name", "Name of member (partial match)"),
				textParam("motion_keywords", "Keywords to search in motion text"),
				{
					Name:        "term_no",
					Description: "Legislative Council term number",
					Constraint:  Constraint{Kind: IntRange, Min: intPtr(1)},
				},
			}, pagingParams()...),
		},
		{
			Name:        ToolBills,
			Description: "Search bills from the LegCo bills database",
			Params: append([]ParamSpec{
				textParam("title_keywords", "Keywords to search in bill titles"),
				{
					Name:        "gazette_year",
					Description: "Year when the bill was gazetted",
					Constraint:  Constraint{Kind: IntRange, Min: intPtr(1800), Max: intPtr(2100)},
				},
				dateParam("gazette_start_date", "Gazette start date in YYYY-MM-DD format"),
				dateParam("gazette_end_date", "Gazette end date in YYYY-MM-DD format"),
			}, pagingParams()...),
		},
		{
			Name:        ToolQuestions,
			Description: "Search questions raised at Council meetings",
			Params: append([]ParamSpec{
				{
					Name:        "question_type",
					Description: "Type of question",
					Constraint:  Constraint{Kind: EnumOf, Enum: []string{"oral", "written"}},
					Default:     "oral",
				},
				textParam("subject_keywords", "Keywords to search in question subjects"),
				textParam("member_name", "Name of the member who asked the question"),
				dateParam("meeting_date", "Meeting date in YYYY-MM-DD format"),
				{
					Name:        "year",
					Description: "Year of the meeting",
					Constraint:  Constraint{Kind: IntRange, Min: intPtr(2000), Max: intPtr(2100)},
				},
			}, pagingParams()...),
		},
		{
			Name:        ToolHansard,
			Description: "Search Hansard, the official record of proceedings",
			Params: append([]ParamSpec{
				{
					Name:        "hansard_type",
					Description: "Type of Hansard record",
					Constraint: Constraint{Kind: EnumOf, Enum: []string{
						"hansard", "questions", "bills", "motions", "voting",
					}},
					Default: "hansard",
				},
				textParam("subject_keywords", "Keywords to search in subjects"),
				textParam("speaker", "Name of speaker"),
				dateParam("meeting_date", "Meeting date in YYYY-MM-DD format"),
				{
					Name:        "year",
					Description: "Year of the meeting",
					Constraint:  Constraint{Kind: IntRange, Min: intPtr(2000), Max: intPtr(2100)},
				},
				{
					Name:        "question_type",
					Description: "Question type, for Hansard question records",
					Constraint:  Constraint{Kind: EnumOf, Enum: []string{"Oral", "Written", "Urgent"}},
				},
			}, pagingParams()...),
		},
		{
			Name:        ToolMeetingSummaries,
			Description: "List council meeting summaries (dates, agendas, links) from the LegCo website",
			Params: []ParamSpec{
				{
					Name:        "year",
					Description: "Year to filter meetings",
					Constraint:  Constraint{Kind: IntRange, Min: intPtr(2000), Max: intPtr(2100)},
				},
				dateParam("date", "Date to filter meetings, YYYY-MM-DD"),
			},
		},
	}
}

// ToolByName returns the definition for name, or false when no such tool
// is registered.
func ToolByName(name string) (ToolDef, bool) {
	for _, def := range Tools() {
		if def.Name == name {
			return def, true
		}
	}
	return ToolDef{}, false
}

// ValidateParams checks raw caller arguments against the tool's parameter
// schema and returns a cleaned bag: defaults applied, free text sanitized,
// integers normalized to int. Arguments the schema does not declare are
// dropped. The first failing parameter aborts with a ValidationError.
func ValidateParams(def ToolDef, raw map[string]any) (map[string]any, error) {
	clean := make(map[string]any, len(def.Params))

	for _, spec := range def.Params {
		value, present := raw[spec.Name]
		if !present || value == nil {
			if spec.Default != nil {
				clean[spec.Name] = spec.Default
			}
			continue
		}

		switch spec.Constraint.Kind {
		case DateISO:
			s, ok := value.(string)
			if !ok || !ValidDate(s) {
				return nil, &ValidationError{Field: spec.Name, Message: fmt.Sprintf("%v is not a valid date, use YYYY-MM-DD", value)}
			}
			clean[spec.Name] = s

		case EnumOf:
			s, ok := value.(string)
			if !ok || !containsExact(spec.Constraint.Enum, s) {
				return nil, &ValidationError{Field: spec.Name, Message: fmt.Sprintf("%v is not one of %v", value, spec.Constraint.Enum)}
			}
			clean[spec.Name] = s

		case IntRange:
			n, ok := asWholeInt(value)
			if !ok {
				return nil, &ValidationError{Field: spec.Name, Message: fmt.Sprintf("%v is not a whole number", value)}
			}
			if spec.Constraint.Min != nil && n < *spec.Constraint.Min {
				return nil, &ValidationError{Field: spec.Name, Message: fmt.Sprintf("%d is below the minimum %d", n, *spec.Constraint.Min)}
			}
			if spec.Constraint.Max != nil && n > *spec.Constraint.Max {
				return nil, &ValidationError{Field: spec.Name, Message: fmt.Sprintf("%d is above the maximum %d", n, *spec.Constraint.Max)}
			}
			clean[spec.Name] = n

		case StringMaxLen:
			s, ok := value.(string)
			if !ok {
				return nil, &ValidationError{Field: spec.Name, Message: fmt.Sprintf("%v is not a string", value)}
			}
			if sanitized := SanitizeText(s, spec.Constraint.MaxLen); sanitized != "" {
				clean[spec.Name] = sanitized
			}
		}
	}

	return clean, nil
}

// ResolveEndpoint maps a tool name plus its validated parameters to the
// endpoint key the query targets. The questions tool branches on
// question_type, the hansard tool on hansard_type.
func ResolveEndpoint(toolName string, params map[string]any) (string, error) {
	switch toolName {
	case ToolVotingResults:
		return EndpointVoting, nil
	case ToolBills:
		return EndpointBills, nil
	case ToolQuestions:
		if qt, _ := params["question_type"].(string); qt == "written" {
			return EndpointQuestionsWritten, nil
		}
		return EndpointQuestionsOral, nil
	case ToolHansard:
		switch params["hansard_type"] {
		case "questions":
			return EndpointHansardQuestions, nil
		case "bills":
			return EndpointHansardBills, nil
		case "motions":
			return EndpointHansardMotions, nil
		case "voting":
			return EndpointHansardVoting, nil
		default:
			return EndpointHansard, nil
		}
	default:
		return "", fmt.Errorf("tool %q has no endpoint mapping", toolName)
	}
}

func containsExact(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

// asWholeInt accepts the integer representations JSON decoding produces.
// Fractional floats and non-numeric types are rejected.
func asWholeInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}
