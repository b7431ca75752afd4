// Package protocol defines the line-delimited JSON wire protocol exchanged
// between clients and the server: one inbound envelope type, and one
// struct per outbound message type named in the command/message tables.
package protocol

import "encoding/json"

// MarshalLine JSON-encodes v and appends the trailing newline every
// outbound wire message requires.
func MarshalLine(v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(body, '\n'), nil
}

// Inbound is the generic shape of any client-to-server line. Only the
// fields relevant to Command are expected to be populated; the Controller
// validates presence/type per command.
type Inbound struct {
	Command      string          `json:"command"`
	SinglePlayer *bool           `json:"single_player,omitempty"`
	Color        string          `json:"color,omitempty"`
	Move         string          `json:"move,omitempty"`
	Metadata     *UploadMetadata `json:"metadata,omitempty"`
	Data         string          `json:"data,omitempty"`
}

// UploadMetadata describes one chunk of a streamed game-file upload.
type UploadMetadata struct {
	Filename     string `json:"filename"`
	TotalSize    int    `json:"total_size"`
	ChunksTotal  int    `json:"chunks_total"`
	ChunkCurrent int    `json:"chunk_current"`
}
