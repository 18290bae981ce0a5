// Package legco models the Legislative Council open-data API surface:
// endpoint catalog, tool parameter constraints, input sanitization, and
// OData filter construction.
//
// DESIGN: Everything in this package is a pure transform over validated
// input. No I/O happens here; the upstream package owns the network.
package legco

// Endpoint keys select one upstream OData collection and its field-mapping
// table.
const (
	EndpointVoting           = "voting"
	EndpointBills            = "bills"
	EndpointQuestionsOral    = "questions_oral"
	EndpointQuestionsWritten = "questions_written"
	EndpointHansard          = "hansard"
	EndpointHansardQuestions = "hansard_questions"
	EndpointHansardBills     = "hansard_bills"
	EndpointHansardMotions   = "hansard_motions"
	EndpointHansardVoting    = "hansard_voting"
)

// BaseURLs maps each endpoint key to its upstream OData collection URL.
var BaseURLs = map[string]string{
	EndpointVoting:           "https://app.legco.gov.hk/vrdb/odata/vVotingResult",
	EndpointBills:            "https://app.legco.gov.hk/BillsDB/odata/Vbills",
	EndpointQuestionsOral:    "https://app.legco.gov.hk/QuestionsDB/odata/ViewOralQuestionsEng",
	EndpointQuestionsWritten: "https://app.legco.gov.hk/QuestionsDB/odata/ViewWrittenQuestionsEng",
	EndpointHansard:          "https://app.legco.gov.hk/OpenData/HansardDB/Hansard",
	EndpointHansardQuestions: "https://app.legco.gov.hk/OpenData/HansardDB/Questions",
	EndpointHansardBills:     "https://app.legco.gov.hk/OpenData/HansardDB/Bills",
	EndpointHansardMotions:   "https://app.legco.gov.hk/OpenData/HansardDB/Motions",
	EndpointHansardVoting:    "https://app.legco.gov.hk/OpenData/HansardDB/VotingResults",
}

// MeetingsPageURL is the council meetings page scraped by
// search_meeting_summaries.
const MeetingsPageURL = "https://www.legco.gov.hk/tc/legco-business/council/council-meetings.html"

// SiteBaseURL resolves relative links found on the meetings page.
const SiteBaseURL = "https://www.legco.gov.hk"
