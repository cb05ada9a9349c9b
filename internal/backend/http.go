package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tbuchner/raumplan/internal/types"
)

const defaultRequestTimeout = 10 * time.Second

// HTTPCollaborator talks to the collaborator backend over HTTP. The wire
// vocabulary (etage, raum, raum_id) is the collaborator's own and is kept
// as-is at this boundary.
type HTTPCollaborator struct {
	baseURL string
	hc      *http.Client
	log     *log.Logger
}

func NewHTTPCollaborator(baseURL string, timeout time.Duration, logger *log.Logger) (*HTTPCollaborator, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("collaborator base URL cannot be empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse collaborator base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &HTTPCollaborator{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
		log:     logger,
	}, nil
}

// statusResponse is the collaborator's common response envelope.
type statusResponse struct {
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	RoomId   *int   `json:"room_id,omitempty"`
	RoomName string `json:"room_name,omitempty"`
	RaumId   *int   `json:"raum_id,omitempty"`
}

func (sr *statusResponse) ok() bool {
	return sr.Status == "success"
}

func (c *HTTPCollaborator) getJson(ctx context.Context, path string, query url.Values, v any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	return c.do(req, v)
}

func (c *HTTPCollaborator) postJson(ctx context.Context, path string, body, v any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, v)
}

func (c *HTTPCollaborator) do(req *http.Request, v any) error {
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *HTTPCollaborator) LoadFloorplan(ctx context.Context, buildingId, floor int) ([]types.RoomData, error) {
	query := url.Values{
		"building_id": {strconv.Itoa(buildingId)},
		"etage":       {strconv.Itoa(floor)},
	}

	var rooms []types.RoomData
	if err := c.getJson(ctx, "/get_floorplan", query, &rooms); err != nil {
		return nil, fmt.Errorf("load floorplan: %w", err)
	}
	return rooms, nil
}

func (c *HTTPCollaborator) SaveRoom(ctx context.Context, room types.RoomData) (SaveRoomResult, error) {
	var sr statusResponse
	if err := c.postJson(ctx, "/api/save_or_update_room", room, &sr); err != nil {
		return SaveRoomResult{}, fmt.Errorf("save room: %w", err)
	}
	if !sr.ok() {
		return SaveRoomResult{}, fmt.Errorf("save room: collaborator rejected: %s", sr.Error)
	}

	res := SaveRoomResult{RoomName: sr.RoomName}
	if sr.RoomId != nil {
		res.RoomId = *sr.RoomId
	}
	return res, nil
}

func (c *HTTPCollaborator) DeleteRoom(ctx context.Context, name string) error {
	var sr statusResponse
	if err := c.postJson(ctx, "/api/delete_room", map[string]string{"name": name}, &sr); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	if sr.Status == "" {
		return fmt.Errorf("delete room: collaborator rejected: %s", sr.Error)
	}
	return nil
}

func (c *HTTPCollaborator) SavePersonToRoom(ctx context.Context, params SavePersonParams) (int, error) {
	var sr statusResponse
	if err := c.postJson(ctx, "/api/save_person_to_raum", params, &sr); err != nil {
		return 0, fmt.Errorf("save person to room: %w", err)
	}
	if sr.RaumId == nil {
		return 0, fmt.Errorf("save person to room: response missing raum_id")
	}
	return *sr.RaumId, nil
}

func (c *HTTPCollaborator) RemovePersonFromRoom(ctx context.Context, personId, raumId int) error {
	query := url.Values{
		"person_id": {strconv.Itoa(personId)},
		"raum_id":   {strconv.Itoa(raumId)},
	}

	var sr statusResponse
	if err := c.getJson(ctx, "/api/delete_person_from_raum", query, &sr); err != nil {
		return fmt.Errorf("remove person from room: %w", err)
	}
	return nil
}

func (c *HTTPCollaborator) SavePerson(ctx context.Context, person map[string]any) error {
	var sr statusResponse
	if err := c.postJson(ctx, "/api/add_or_update_person", person, &sr); err != nil {
		return fmt.Errorf("save person: %w", err)
	}
	return nil
}

func (c *HTTPCollaborator) LoadPersonPlacements(ctx context.Context, buildingId, floor int) ([]types.PersonPlacement, error) {
	query := url.Values{
		"building_id": {strconv.Itoa(buildingId)},
		"etage":       {strconv.Itoa(floor)},
	}

	var placements []types.PersonPlacement
	if err := c.getJson(ctx, "/api/get_person_raum_data", query, &placements); err != nil {
		return nil, fmt.Errorf("load person placements: %w", err)
	}
	return placements, nil
}
