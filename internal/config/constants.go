package config

// LLM backends
const (
	BackendOpenAI    = "openai"
	BackendLangChain = "langchain"
	BackendGemini    = "gemini"
)

// Storage drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Progress backends
const (
	ProgressFile  = "file"
	ProgressRedis = "redis"
)

// Business defaults
const (
	DefaultListingID      = "11382416837896137085"
	DefaultBusinessURL    = "https://g.co/kgs/HgU3VjS"
	DefaultOpenAIEndpoint = "https://api.openai.com/v1"
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"
)

// Identity provider
const (
	LoginURL          = "https://accounts.google.com/"
	LoginSuccessURL   = "https://myaccount.google.com/?pli=1"
	SelectorEmail     = `input[type="email"]`
	SelectorPassword  = `input[type="password"]`
	SelectorLoginNext = `button:has-text("Next")`
)

// PopupDismissSelectors are tried in order after login. Most specific first.
var PopupDismissSelectors = []string{
	`button:has-text("Not now")`,
	`g-raised-button:has-text("Not now")`,
	`button:has-text("Skip")`,
	`button:has-text("Maybe later")`,
	`button:has-text("No thanks")`,
	`button:has-text("Dismiss")`,
	`button:has-text("Got it")`,
	`button[aria-label="Close"]`,
	`div[role="dialog"] button[aria-label*="Close"]`,
	`button:has-text("Close")`,
}

// Review list surface
const (
	SelectorReviewFrame    = `iframe[src*="/local/business/%s/customers/reviews"]`
	SelectorReadReviews    = `button:has-text("Read reviews")`
	SelectorNotNow         = `g-raised-button:has-text("Not now")`
	SelectorUnrepliedTab   = `button:has(span:has-text("Unreplied"))`
	SelectorMoreReviews    = `button[aria-label="More Reviews"]`
	SelectorScrollAnchor   = `div[jsrenderer="vYiNxe"]`
	SelectorReviewCard     = `div.noyJyc`
	SelectorReviewByID     = `div[data-review-id="%s"]`
	SelectorReplyContainer = `div.J7elmb:has(div[data-review-id="%s"])`
	SelectorReplyButton    = `button:has(span:text-is("Reply"))`
	SelectorReplyTextarea  = `textarea[aria-label="Your public reply"]`
	SelectorReplySubmit    = `button.VfPpkd-LgbsSe.DuMIQc[jsname="hrGhad"]`
	BusinessReplyMarker    = "Business reply"
)

// Review card fields
const (
	SelectorCardIDHolder    = `div.KuKPRc`
	SelectorReviewerName    = `a.PskQHd[jsname="xs1xe"]`
	SelectorReviewerProfile = `a.PskQHd[aria-label*="Link to reviewer profile"]`
	SelectorReviewerDetails = `div.PROnRd.vq72z`
	SelectorRating          = `span[role="img"]`
	SelectorReviewTime      = `span.KEfuhb`
	SelectorFullReviewLink  = `a[jsname="ix0Hvc"]`
	SelectorFullReviewText  = `div[jsname="PBWx0c"]`
	SelectorReviewText      = `div.gyKkFe.JhRJje.Fv38Af`
	SelectorMetadata        = `span.PROnRd.mpP9nc`
	SelectorSubRatings      = `div.fjB0Xb`
	SelectorReviewImage     = `img.T3g1hc`
)

// Card attributes
const (
	AttrReviewID  = "data-review-id"
	AttrListingID = "data-listing-id"
	AttrShareURL  = "data-share-review-url"
)
