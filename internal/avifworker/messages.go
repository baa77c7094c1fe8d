package avifworker

// Message kinds exchanged with the worker.
const (
	KindEncode = "encode-avif"
	KindResult = "encode-avif-result"
)

// Request asks the worker to encode one RGBA frame.
type Request struct {
	Kind    string `json:"kind"`
	ID      uint64 `json:"id"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Pixels  []byte `json:"pixels"`
	Quality int    `json:"quality"`
}

// Response carries the outcome of the request with the same ID. Bytes and
// MIME are set when OK is true; Error is set otherwise.
type Response struct {
	Kind  string `json:"kind"`
	ID    uint64 `json:"id"`
	OK    bool   `json:"ok"`
	MIME  string `json:"mime,omitempty"`
	Bytes []byte `json:"bytes,omitempty"`
	Error string `json:"error,omitempty"`
}

func failure(id uint64, msg string) Response {
	return Response{Kind: KindResult, ID: id, Error: msg}
}
