package sui

import (
	"encoding/json"
)

// EventID is the position token the fullnode issues for every event. The
// pair orders events globally; it is treated as opaque everywhere outside
// this package.
type EventID struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

// Event is a single ledger event as returned by suix_queryEvents.
// Raw retains the exact wire payload for forward-compatible storage.
type Event struct {
	ID          EventID        `json:"id"`
	PackageID   string         `json:"packageId"`
	Module      string         `json:"transactionModule"`
	Sender      string         `json:"sender"`
	Type        string         `json:"type"`
	ParsedJSON  map[string]any `json:"parsedJson"`
	TimestampMs string         `json:"timestampMs"`

	Raw json.RawMessage `json:"-"`
}

// EventPage is one page of an ascending event query.
type EventPage struct {
	Events      []Event
	NextCursor  *EventID
	HasNextPage bool
}

// LotteryState is the live on-chain view the settlement watcher re-checks
// before acting. The mirror never stores settlement status, so this is
// always fetched fresh.
type LotteryState struct {
	DeadlineMs       int64
	Settled          bool
	ParticipantCount int
}

// LotteryMetadata is the creation-time snapshot the sync endpoint mirrors.
type LotteryMetadata struct {
	Creator         string
	DeadlineMs      int64
	TotalPrizeUnits int64
	Raw             json.RawMessage
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type objectContent struct {
	DataType string         `json:"dataType"`
	Type     string         `json:"type"`
	Fields   map[string]any `json:"fields"`
}

type objectData struct {
	ObjectID string         `json:"objectId"`
	Version  string         `json:"version"`
	Digest   string         `json:"digest"`
	Content  *objectContent `json:"content"`
}

type objectResponse struct {
	Data  *objectData `json:"data"`
	Error *struct {
		Code     string `json:"code"`
		ObjectID string `json:"object_id"`
	} `json:"error"`
}
