package config

import "time"

const (
	// Rate limiting
	DefaultRateMaxMessages = 5
	DefaultRateWindow      = 10 * time.Second

	// History
	DefaultHistoryLimit        = 50
	DefaultHistoryWorkers      = 2
	DefaultHistoryQueueSize    = 256
	DefaultHistoryWriteTimeout = 3 * time.Second
	DefaultHistoryLoadTimeout  = 2 * time.Second
	RedisHistoryCap            = 200

	// Reports
	ReportEvidenceMessages = 20
	DefaultReportRate      = 1.0 // per second per client IP
	DefaultReportBurst     = 5
	HighSeverityReport     = 3

	// Chat
	MaxTextLength = 2000
)

// DefaultBannedWords is the static list used when moderation.banned_words is unset.
var DefaultBannedWords = []string{
	"shit",
	"fuck",
	"bitch",
	"asshole",
	"bastard",
	"cunt",
	"dick",
	"slut",
}

// Report categories, matched against the free-text reason.
const (
	CategorySpam       = "spam"
	CategoryHarassment = "harassment"
	CategoryExplicit   = "explicit"
	CategoryMinor      = "minor"
	CategoryOther      = "other"
)

// ReportKeywords maps lowercase reason fragments to a category.
// Checked in ReportCategoryOrder so the most serious match wins.
var ReportKeywords = map[string][]string{
	CategoryMinor:      {"minor", "underage", "child"},
	CategoryHarassment: {"harass", "abuse", "threat", "insult", "hate", "bully"},
	CategoryExplicit:   {"nude", "sexual", "explicit", "porn", "nsfw"},
	CategorySpam:       {"spam", "scam", "advert", "link"},
}

var ReportCategoryOrder = []string{CategoryMinor, CategoryHarassment, CategoryExplicit, CategorySpam}

// ReportCategoryWeights is the severity of each category.
var ReportCategoryWeights = map[string]int{
	CategoryMinor:      5,
	CategoryHarassment: 3,
	CategoryExplicit:   3,
	CategorySpam:       1,
	CategoryOther:      1,
}
