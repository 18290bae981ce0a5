package legco

import (
	"fmt"
	"net/url"
	"strings"
)

// clauseKind selects how one mapped field becomes an OData filter clause.
type clauseKind int

const (
	clauseSubstring clauseKind = iota // substringof('word', Field), AND-joined per word
	clauseEqString                    // Field eq 'value'
	clauseEqInt                       // Field eq N
	clauseDateEq                      // Field eq datetime'YYYY-MM-DD'
	clauseDateGE                      // Field ge datetime'YYYY-MM-DD'
	clauseDateLE                      // Field le datetime'YYYY-MM-DD'
	clauseYearEq                      // year(Field) eq N
)

// fieldRule maps one tool parameter to one upstream field. Parameters with
// no rule for the resolved endpoint are dropped silently; the upstream
// collections do not share a schema and erroring would break the shared
// parameter surface of the hansard tool.
type fieldRule struct {
	param string
	field string
	kind  clauseKind

	// static is appended alongside the generated clause. Used by the
	// Hansard questions collection, which needs the English partition
	// pinned whenever a question type filter is present.
	static string
}

var hansardBaseRules = []fieldRule{
	{param: "subject_keywords", field: "Subject", kind: clauseSubstring},
	{param: "speaker", field: "Speaker", kind: clauseEqString},
	{param: "meeting_date", field: "MeetingDate", kind: clauseDateEq},
	{param: "year", field: "MeetingDate", kind: clauseYearEq},
}

var filterRules = map[string][]fieldRule{
	EndpointVoting: {
		{param: "meeting_type", field: "type", kind: clauseEqString},
		{param: "start_date", field: "start_date", kind: clauseDateGE},
		{param: "end_date", field: "start_date", kind: clauseDateLE},
		{param: "member_name", field: "name_en", kind: clauseSubstring},
		{param: "motion_keywords", field: "motion_en", kind: clauseSubstring},
		{param: "term_no", field: "term_no", kind: clauseEqInt},
	},
	EndpointBills: {
		{param: "title_keywords", field: "bill_title_eng", kind: clauseSubstring},
		{param: "gazette_year", field: "bill_gazette_date", kind: clauseYearEq},
		{param: "gazette_start_date", field: "bill_gazette_date", kind: clauseDateGE},
		{param: "gazette_end_date", field: "bill_gazette_date", kind: clauseDateLE},
	},
	EndpointQuestionsOral: {
		{param: "subject_keywords", field: "SubjectName", kind: clauseSubstring},
		{param: "member_name", field: "MemberName", kind: clauseSubstring},
		{param: "meeting_date", field: "MeetingDate", kind: clauseDateEq},
		{param: "year", field: "MeetingDate", kind: clauseYearEq},
	},
	EndpointQuestionsWritten: {
		{param: "subject_keywords", field: "SubjectName", kind: clauseSubstring},
		{param: "member_name", field: "MemberName", kind: clauseSubstring},
		{param: "meeting_date", field: "MeetingDate", kind: clauseDateEq},
		{param: "year", field: "MeetingDate", kind: clauseYearEq},
	},
	EndpointHansard:        hansardBaseRules,
	EndpointHansardBills:   hansardBaseRules,
	EndpointHansardMotions: hansardBaseRules,
	EndpointHansardVoting:  hansardBaseRules,
	EndpointHansardQuestions: append(append([]fieldRule{}, hansardBaseRules...), fieldRule{
		param:  "question_type",
		field:  "QuestionType",
		kind:   clauseEqString,
		static: "HansardType eq 'English'",
	}),
}

// BuildQuery turns an endpoint key and a validated parameter bag into OData
// query parameters: pagination directives plus a single combined filter
// expression. The parameter bag must already be validated and sanitized;
// free text is embedded verbatim.
//
// When no filterable parameter is present no $filter key is emitted at all.
func BuildQuery(endpoint string, params map[string]any) (url.Values, error) {
	rules, ok := filterRules[endpoint]
	if !ok {
		return nil, &QueryBuildError{Endpoint: endpoint}
	}

	query := url.Values{}
	if params["format"] == "xml" {
		query.Set("$format", "xml")
	}
	if top, ok := params["top"].(int); ok {
		query.Set("$top", fmt.Sprintf("%d", top))
	}
	if skip, ok := params["skip"].(int); ok {
		query.Set("$skip", fmt.Sprintf("%d", skip))
	}
	query.Set("$inlinecount", "allpages")

	var clauses []string
	for _, rule := range rules {
		value, present := params[rule.param]
		if !present {
			continue
		}
		clause := buildClause(rule, value)
		if clause == "" {
			continue
		}
		clauses = append(clauses, clause)
		if rule.static != "" {
			clauses = append(clauses, rule.static)
		}
	}
	if len(clauses) > 0 {
		query.Set("$filter", strings.Join(clauses, " and "))
	}

	return query, nil
}

func buildClause(rule fieldRule, value any) string {
	switch rule.kind {
	case clauseSubstring:
		s, _ := value.(string)
		return substringClause(s, rule.field)
	case clauseEqString:
		s, _ := value.(string)
		if s == "" {
			return ""
		}
		return fmt.Sprintf("%s eq '%s'", rule.field, s)
	case clauseEqInt:
		n, ok := value.(int)
		if !ok {
			return ""
		}
		return fmt.Sprintf("%s eq %d", rule.field, n)
	case clauseDateEq:
		return datetimeClause(rule.field, "eq", value)
	case clauseDateGE:
		return datetimeClause(rule.field, "ge", value)
	case clauseDateLE:
		return datetimeClause(rule.field, "le", value)
	case clauseYearEq:
		n, ok := value.(int)
		if !ok {
			return ""
		}
		return fmt.Sprintf("year(%s) eq %d", rule.field, n)
	}
	return ""
}

func datetimeClause(field, op string, value any) string {
	s, _ := value.(string)
	if s == "" {
		return ""
	}
	return fmt.Sprintf("%s %s datetime'%s'", field, op, s)
}

// substringClause builds the keyword filter for one field. The value is
// split on whitespace: a single word yields one substringof test; multiple
// words yield a parenthesized conjunction so every word must appear
// somewhere in the field, in any order.
func substringClause(value, field string) string {
	words := strings.Fields(value)
	switch len(words) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("substringof('%s', %s)", words[0], field)
	default:
		parts := make([]string, len(words))
		for i, word := range words {
			parts[i] = fmt.Sprintf("substringof('%s', %s)", word, field)
		}
		return "(" + strings.Join(parts, " and ") + ")"
	}
}
