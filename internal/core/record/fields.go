package record

// Stable wire names of record fields
const (
	ID                 = "id"
	Content            = "content"
	PlainText          = "plain-text"
	PlainTextTokens    = "plain-text-tokens"
	PlainTextSentences = "plain-text-sentences"
	URLKey             = "urlkey"
	Timestamp          = "timestamp"
	URL                = "url"
	MIMEType           = "mime-type"
	ResponseCode       = "response-code"
	Digest             = "digest"
	RedirectURL        = "redirect-url"
	RobotMetaTags      = "robot-meta-tags"
	WARCOffset         = "warc-offset"
	WARCRecordSize     = "warc-record-size"
	WARCFilename       = "warc-filename"
	RecHeaders         = "rec-headers"
	HTTPHeaders        = "http-headers"
	Title              = "title"
	Headlines          = "headlines"
	Links              = "links"
	Language           = "language"
	WebPageType        = "web-page-type"
	Topics             = "topics"
	Sentiment          = "sentiment"
	RefersTo           = "refers-to"
	HarvestID          = "harvest-id"

	// Extra holds data outside the canonical schema, a list appended to by algorithms
	Extra = "extra"
)

// intFields are coerced to int64 by NormalizeInts
var intFields = []string{WARCOffset, WARCRecordSize}

// Capture record headers mapped onto record fields
var warcHeaderFields = map[string]string{
	"WARC-Record-ID":      ID,
	"WARC-Target-URI":     URL,
	"Content-Length":      WARCRecordSize,
	"WARC-Date":           Timestamp,
	"WARC-Payload-Digest": Digest,
	"WARC-Refers-To":      RefersTo,
}
