package filter

// defaultExcluded is the fixed built-in exclusion list (spec §4.2: "≥ 40
// phrases covering job postings, marketing copy, aggregator idioms, and
// non-research industry keywords"). Checked as a lowercase substring match
// against title+abstract.
var defaultExcluded = []string{
	"we are hiring", "job opening", "job posting", "apply now", "career opportunity",
	"now hiring", "join our team", "open position", "we're hiring", "send your resume",
	"submit your application", "equal opportunity employer", "full-time position",
	"remote position available", "competitive salary", "benefits package",
	"limited time offer", "buy now", "free trial", "sign up today", "discount code",
	"promo code", "click here to", "subscribe now", "unsubscribe", "terms and conditions apply",
	"sponsored content", "sponsored post", "advertisement", "this is a paid partnership",
	"affiliate link", "shop our", "add to cart", "checkout now", "order today",
	"weekly roundup", "weekly links", "daily links", "news digest", "link collection",
	"reading list", "top 10 links", "best of the week", "what we're reading",
	"around the web", "in case you missed it", "quick links", "curated list",
	"newsletter archive", "webinar registration", "book a demo", "request a quote",
	"contact sales", "schedule a call", "product roadmap", "release notes",
}
