package errors

import "slices"

// Template is a registered error.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

var registry = map[string]Template{
	// config
	"D001": {
		Category: CategoryConfig,
		Message:  "Config file unreadable",
		Detail:   "The configuration file exists but could not be read.",
	},
	"D002": {
		Category: CategoryConfig,
		Message:  "Config file malformed",
		Detail:   "The configuration file is not valid JSON (comments allowed) or YAML.",
	},
	"D003": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A configuration value is out of range or has the wrong form.",
	},

	// page
	"D010": {
		Category: CategoryPage,
		Message:  "Page is not well-formed XML",
		Detail:   "The page could not be tokenized. Check for unclosed tags and unescaped '<' or '&' characters.",
	},
	"D011": {
		Category: CategoryPage,
		Message:  "Unknown element",
		Detail:   "The page uses an element name that has no node kind.",
	},
	"D012": {
		Category: CategoryPage,
		Message:  "Page not found",
		Detail:   "The page file does not exist or cannot be opened.",
	},
	"D013": {
		Category: CategoryPage,
		Message:  "Invalid page structure",
		Detail:   "A page has exactly one body (or one root element) and header options need a name.",
	},
	"D014": {
		Category: CategoryPage,
		Message:  "Element cannot have children",
		Detail:   "Void elements (text, br, img, input) cannot contain other elements.",
	},

	// journal
	"D020": {
		Category: CategoryJournal,
		Message:  "Journal record corrupt",
		Detail:   "A journal record could not be decoded. The file may be truncated or was written by another tool.",
	},
	"D021": {
		Category: CategoryJournal,
		Message:  "Unsupported journal version",
		Detail:   "The journal header names a format version this build cannot read.",
	},
	"D022": {
		Category: CategoryJournal,
		Message:  "Journal replay failed",
		Detail:   "A recorded script could not be applied to the replay host.",
	},

	// protocol
	"D030": {
		Category: CategoryProtocol,
		Message:  "Bridge connection failed",
		Detail:   "The remote host bridge could not be reached or refused the handshake.",
	},
	"D031": {
		Category: CategoryProtocol,
		Message:  "Surface rejected",
		Detail:   "The bridge does not serve the requested surface.",
	},

	// cli
	"D040": {
		Category: CategoryCLI,
		Message:  "Invalid arguments",
	},
	"D041": {
		Category: CategoryCLI,
		Message:  "Debug dump failed",
		Detail:   "The tree dump could not be written to its sink.",
	},
	"D042": {
		Category: CategoryCLI,
		Message:  "Debug server failed",
		Detail:   "The debug HTTP server could not listen on its address.",
	},
}

// Codes returns every registered code in order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// Lookup returns the template for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
