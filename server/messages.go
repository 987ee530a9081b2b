package server

// ExecuteRequest asks the server to run an assembly program. Arrays are
// decimal word strings; missing trailing elements are zero.
type ExecuteRequest struct {
	Source string   `cbor:"source" json:"source"`
	In     []string `cbor:"in" json:"in"`
	Out    []string `cbor:"out" json:"out"`
}

// ExecuteResponse carries the status byte and both arrays after the run.
// Arrays are trimmed to the longer of the request length and the last
// non-zero element.
type ExecuteResponse struct {
	Status     uint8    `cbor:"status" json:"status"`
	StatusText string   `cbor:"status_text" json:"status_text"`
	In         []string `cbor:"in" json:"in"`
	Out        []string `cbor:"out" json:"out"`
	RunID      string   `cbor:"run_id,omitempty" json:"run_id,omitempty"`
	Cached     bool     `cbor:"cached" json:"cached"`
}
