package control

// Pointer is one normalized pointer position in a move batch.
type Pointer struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Message is a control websocket or data channel payload.
type Message struct {
	T        string    `json:"t"`
	ID       int       `json:"id,omitempty"`
	X        float64   `json:"x,omitempty"`
	Y        float64   `json:"y,omitempty"`
	Pointers []Pointer `json:"pointers,omitempty"`
	Dir      string    `json:"dir,omitempty"`
	Path     string    `json:"path,omitempty"`
	W        int       `json:"w,omitempty"`
	H        int       `json:"h,omitempty"`
	Density  float64   `json:"density,omitempty"`
	Video    string    `json:"video,omitempty"`
	Enabled  *bool     `json:"enabled,omitempty"`
}

// Message types.
const (
	MsgHello        = "hello"
	MsgDown         = "down"
	MsgMove         = "move"
	MsgUp           = "up"
	MsgCancel       = "cancel"
	MsgCancelAll    = "cancelAll"
	MsgProjection   = "proj"
	MsgOpen         = "open"
	MsgFitAll       = "fitAll"
	MsgSnapshot     = "snapshot"
	MsgResize       = "resize"
	MsgSetVideo     = "setVideo"
	MsgInputEnabled = "inputEnabled"
)
