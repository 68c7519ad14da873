package entity

// Extracted record types. All fields are best-effort strings; a field
// the page never showed stays empty rather than failing extraction.

type Appointment struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Clinic    string `json:"clinic"`
	Procedure string `json:"procedure"`
	Location  string `json:"location"`
	Provider  string `json:"provider"`
}

type LabTest struct {
	TestName           string `json:"test_name"`
	Date               string `json:"date"`
	OrderingFacility   string `json:"ordering_facility"`
	PerformingFacility string `json:"performing_facility"`
}

type Immunisation struct {
	Vaccine  string `json:"vaccine"`
	Dose     string `json:"dose"`
	Date     string `json:"date"`
	Status   string `json:"status"`
	Facility string `json:"facility"`
	Batch    string `json:"batch"`
}

type BillCluster struct {
	Cluster string `json:"cluster"`
	Amount  string `json:"amount"`
}

// Extraction is the parsed outcome of one reader pass. Items holds the
// workflow's typed record slice; Count is its length even when the
// slice is empty.
type Extraction struct {
	Items   any    `json:"items"`
	Count   int    `json:"count"`
	Summary string `json:"summary"`
	TTS     string `json:"tts,omitempty"`
	Note    string `json:"note,omitempty"`
}

// ReadResult is the terminal payload of a snapshot reader run. Gated
// and the try counters flag degraded results where the readiness gate
// timed out and extraction ran on a best-effort snapshot.
type ReadResult struct {
	URL string `json:"url"`
	Extraction
	Reason      string `json:"reason"`
	Gated       bool   `json:"gated"`
	PrepTries   int    `json:"prep_tries"`
	SettleTries int    `json:"settle_tries"`
}
