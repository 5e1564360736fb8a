package manifest

import "strings"

// Columns is the fixed manifest header, in file order.
var Columns = []string{
	"client_id",
	"path",
	"sentence_id",
	"sentence",
	"sentence_domain",
	"up_votes",
	"down_votes",
	"age",
	"gender",
	"accents",
	"variant",
	"locale",
	"segment",
}

// Record is a single manifest row. ClientID, Path, and Sentence drive every
// operation; the remaining columns are upstream metadata passed through
// unmodified.
type Record struct {
	ClientID       string
	Path           string
	SentenceID     string
	Sentence       string
	SentenceDomain string
	UpVotes        string
	DownVotes      string
	Age            string
	Gender         string
	Accents        string
	Variant        string
	Locale         string
	Segment        string
}

// NewRecord builds a freshly minted record with the defaults new rows carry:
// up_votes 2, down_votes 0, locale from the argument (en when empty).
func NewRecord(clientID, path, sentence, locale string) Record {
	if strings.TrimSpace(locale) == "" {
		locale = "en"
	}
	return Record{
		ClientID:  clientID,
		Path:      path,
		Sentence:  sentence,
		UpVotes:   "2",
		DownVotes: "0",
		Locale:    locale,
	}
}

// fields returns the record's columns in header order, cleaned for the
// tab-separated format.
func (r Record) fields() []string {
	return []string{
		cleanField(r.ClientID),
		cleanField(r.Path),
		cleanField(r.SentenceID),
		cleanField(r.Sentence),
		cleanField(r.SentenceDomain),
		cleanField(r.UpVotes),
		cleanField(r.DownVotes),
		cleanField(r.Age),
		cleanField(r.Gender),
		cleanField(r.Accents),
		cleanField(r.Variant),
		cleanField(r.Locale),
		cleanField(r.Segment),
	}
}

func recordFromFields(fields []string) Record {
	padded := fields
	if len(padded) < len(Columns) {
		padded = make([]string, len(Columns))
		copy(padded, fields)
	}
	return Record{
		ClientID:       padded[0],
		Path:           padded[1],
		SentenceID:     padded[2],
		Sentence:       padded[3],
		SentenceDomain: padded[4],
		UpVotes:        padded[5],
		DownVotes:      padded[6],
		Age:            padded[7],
		Gender:         padded[8],
		Accents:        padded[9],
		Variant:        padded[10],
		Locale:         padded[11],
		Segment:        padded[12],
	}
}

// fieldCleaner collapses characters that would break the unquoted
// tab-separated format into plain spaces.
var fieldCleaner = strings.NewReplacer(
	"\t", " ",
	"\n", " ",
	"\r", " ",
)

func cleanField(value string) string {
	return fieldCleaner.Replace(value)
}
