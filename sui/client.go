package sui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fullnode URLs for the public Sui networks, used when no explicit node
// URL override is configured.
var fullnodeURLs = map[string]string{
	"mainnet": "https://fullnode.mainnet.sui.io:443",
	"testnet": "https://fullnode.testnet.sui.io:443",
	"devnet":  "https://fullnode.devnet.sui.io:443",
	"localnet": "http://127.0.0.1:9000",
}

// FullnodeURL resolves a network name to its public fullnode URL.
func FullnodeURL(network string) (string, error) {
	url, ok := fullnodeURLs[network]
	if !ok {
		return "", fmt.Errorf("unknown sui network %q", network)
	}
	return url, nil
}

// Client is a JSON-RPC client for a Sui fullnode. All calls are bounded by
// the HTTP client's timeout; failures are returned as plain errors and are
// always safe to retry at the caller's cadence.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a fullnode client for the given RPC URL
func NewClient(url string) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc call %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc call %s returned HTTP %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc call %s failed: %s (code %d)", method, rpcResp.Error.Message, rpcResp.Error.Code)
	}

	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}

	return nil
}

// QueryEvents fetches one page of events of the given Move event type in
// ascending ledger order, starting after cursor (nil means start of
// history).
func (c *Client) QueryEvents(ctx context.Context, eventType string, cursor *EventID, limit int) (*EventPage, error) {
	filter := map[string]any{"MoveEventType": eventType}

	var cursorParam any
	if cursor != nil {
		cursorParam = cursor
	}

	var result struct {
		Data        []json.RawMessage `json:"data"`
		NextCursor  *EventID          `json:"nextCursor"`
		HasNextPage bool              `json:"hasNextPage"`
	}
	// Final param false = ascending order.
	if err := c.call(ctx, "suix_queryEvents", []any{filter, cursorParam, limit, false}, &result); err != nil {
		return nil, err
	}

	page := &EventPage{
		NextCursor:  result.NextCursor,
		HasNextPage: result.HasNextPage,
	}
	for _, raw := range result.Data {
		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		event.Raw = raw
		page.Events = append(page.Events, event)
	}

	return page, nil
}

// getMoveObject fetches an object and returns its Move content, or nil
// when the ID does not resolve to a live Move object.
func (c *Client) getMoveObject(ctx context.Context, objectID string) (*objectResponse, *objectContent, error) {
	var result objectResponse
	params := []any{objectID, map[string]any{"showContent": true}}
	if err := c.call(ctx, "sui_getObject", params, &result); err != nil {
		return nil, nil, err
	}

	if result.Data == nil || result.Data.Content == nil || result.Data.Content.DataType != "moveObject" {
		return &result, nil, nil
	}

	return &result, result.Data.Content, nil
}

// GetLotteryState fetches the live fields the watcher needs to gate a
// settlement. Returns nil when the object does not resolve on-chain.
func (c *Client) GetLotteryState(ctx context.Context, lotteryID string) (*LotteryState, error) {
	_, content, err := c.getMoveObject(ctx, lotteryID)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, nil
	}

	deadline := FieldInt64(content.Fields["deadline_ms"])
	if deadline == 0 {
		deadline = FieldInt64(content.Fields["deadline"])
	}

	return &LotteryState{
		DeadlineMs:       deadline,
		Settled:          FieldBool(content.Fields["settled"]),
		ParticipantCount: len(UnwrapVector(content.Fields["participants"])),
	}, nil
}

// GetLotteryMetadata fetches the creation-time snapshot of a lottery for
// mirroring. Returns nil when the object does not resolve on-chain.
func (c *Client) GetLotteryMetadata(ctx context.Context, lotteryID string) (*LotteryMetadata, error) {
	resp, content, err := c.getMoveObject(ctx, lotteryID)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, nil
	}

	creator := FieldString(content.Fields["creator"])
	if creator == "" {
		creator = "0x0"
	}

	deadline := FieldInt64(content.Fields["deadline_ms"])
	if deadline == 0 {
		deadline = FieldInt64(content.Fields["deadline"])
	}

	templates := UnwrapVector(content.Fields["prize_templates"])
	if templates == nil {
		templates = UnwrapVector(content.Fields["prizeTemplates"])
	}
	var totalUnits int64
	for _, template := range templates {
		fields, ok := template.(map[string]any)
		if !ok {
			continue
		}
		if inner, ok := fields["fields"].(map[string]any); ok {
			totalUnits += FieldInt64(inner["quantity"])
		} else {
			totalUnits += FieldInt64(fields["quantity"])
		}
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode object response: %w", err)
	}

	return &LotteryMetadata{
		Creator:         creator,
		DeadlineMs:      deadline,
		TotalPrizeUnits: totalUnits,
		Raw:             raw,
	}, nil
}

// MoveCall builds a Move call through the node's unsafe transaction
// builder, signs the returned bytes with the given signer, executes the
// transaction, and returns its digest.
func (c *Client) MoveCall(ctx context.Context, signer *Signer, packageID, module, function string, objectArgs []string, gasBudget uint64) (string, error) {
	args := make([]any, len(objectArgs))
	for i, arg := range objectArgs {
		args[i] = arg
	}

	var built struct {
		TxBytes string `json:"txBytes"`
	}
	params := []any{
		signer.Address(),
		packageID,
		module,
		function,
		[]any{}, // no type arguments
		args,
		nil, // let the node pick a gas object
		fmt.Sprintf("%d", gasBudget),
	}
	if err := c.call(ctx, "unsafe_moveCall", params, &built); err != nil {
		return "", fmt.Errorf("failed to build %s::%s call: %w", module, function, err)
	}

	signature, err := signer.SignTransaction(built.TxBytes)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s::%s call: %w", module, function, err)
	}

	var executed struct {
		Digest string `json:"digest"`
	}
	execParams := []any{
		built.TxBytes,
		[]string{signature},
		map[string]any{"showEffects": true},
		"WaitForEffectsCert",
	}
	if err := c.call(ctx, "sui_executeTransactionBlock", execParams, &executed); err != nil {
		return "", fmt.Errorf("failed to execute %s::%s call: %w", module, function, err)
	}

	return executed.Digest, nil
}
