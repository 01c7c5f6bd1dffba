package internal

import (
	"encoding/json"
	"sort"
	"strings"
)

// UNNotClassified is stored as the UN number when section 14 states the
// product is not dangerous goods.
const UNNotClassified = "Not classified"

const (
	FieldTradeName        = "trade_name"
	FieldManufacturer     = "manufacturer"
	FieldHazardStatements = "hazard_statements"
	FieldUNNumber         = "un_number"
	FieldPictograms       = "pictograms"
	FieldRevisionDate     = "revision_date"
)

// RecordFields lists the record fields in report order.
var RecordFields = []string{
	FieldTradeName,
	FieldManufacturer,
	FieldHazardStatements,
	FieldUNNumber,
	FieldPictograms,
	FieldRevisionDate,
}

// CodeSet is an unordered set of normalized codes such as H315 or GHS07.
type CodeSet map[string]struct{}

func NewCodeSet(codes ...string) CodeSet {
	s := CodeSet{}
	for _, c := range codes {
		s.Add(c)
	}
	return s
}

func (s CodeSet) Add(code string) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return
	}
	s[code] = struct{}{}
}

func (s CodeSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

func (s CodeSet) Len() int { return len(s) }

func (s CodeSet) Union(other CodeSet) {
	for c := range other {
		s[c] = struct{}{}
	}
}

func (s CodeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Key is the canonical, order-independent string form of the set.
func (s CodeSet) Key() string {
	return strings.Join(s.Sorted(), ",")
}

func (s CodeSet) Equal(other CodeSet) bool {
	if len(s) != len(other) {
		return false
	}
	for c := range s {
		if !other.Has(c) {
			return false
		}
	}
	return true
}

func (s CodeSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *CodeSet) UnmarshalJSON(data []byte) error {
	var codes []string
	if err := json.Unmarshal(data, &codes); err != nil {
		return err
	}
	*s = NewCodeSet(codes...)
	return nil
}

type Record struct {
	TradeName        *string `json:"trade_name"`
	Manufacturer     *string `json:"manufacturer"`
	HazardStatements CodeSet `json:"hazard_statements"`
	UNNumber         *string `json:"un_number"`
	Pictograms       CodeSet `json:"pictograms"`
	RevisionDate     *string `json:"revision_date"`
}

// NewRecord returns a record with every field absent.
func NewRecord() Record {
	return Record{HazardStatements: CodeSet{}, Pictograms: CodeSet{}}
}

// Signature is the hazard signature used as grouping key.
func (r Record) Signature() string {
	return r.HazardStatements.Key()
}

// Clone returns a copy that shares no sets with r.
func (r Record) Clone() Record {
	out := r
	out.HazardStatements = NewCodeSet(r.HazardStatements.Sorted()...)
	out.Pictograms = NewCodeSet(r.Pictograms.Sorted()...)
	return out
}

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type RunRow struct {
	ID         int
	TraceID    string
	Root       string
	Format     string
	StartedAt  string
	FinishedAt *string
	Counts     map[string]int
}

// DocumentRow is the ledger entry for one extracted document.
type DocumentRow struct {
	ID        int
	RunID     int
	Path      string
	Directory string
	SHA256    string
	Extractor string
	Record    Record
	Error     *string
}

// EmissionRow is a record that was written to the register.
type EmissionRow struct {
	ID         int
	RunID      int
	DocumentID *int
	Directory  string
	Record     Record
}
