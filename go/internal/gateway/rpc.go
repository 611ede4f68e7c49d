package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/mcdev12/scoreboard/go/internal/room"
)

const (
	// RoomServiceName is the fully-qualified name of the RoomService service.
	RoomServiceName = "scoreboard.v1.RoomService"

	// RoomServiceGetRoomStateProcedure is the fully-qualified name of the
	// RoomService's GetRoomState RPC.
	RoomServiceGetRoomStateProcedure = "/scoreboard.v1.RoomService/GetRoomState"
)

// RoomService serves room state over Connect. The request is the room code
// and the response is the RoomState document as a protobuf Struct.
type RoomService struct {
	provider StateProvider
}

func NewRoomService(provider StateProvider) *RoomService {
	return &RoomService{provider: provider}
}

// GetRoomState returns the spectator view of a room.
func (s *RoomService) GetRoomState(ctx context.Context, req *connect.Request[wrapperspb.StringValue]) (*connect.Response[structpb.Struct], error) {
	state, err := s.provider.State(ctx, req.Msg.GetValue())
	if err != nil {
		return nil, connect.NewError(codeFor(err), err)
	}

	st, err := toStruct(state)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(st), nil
}

// NewRoomServiceHandler builds an HTTP handler for the RoomService. It
// returns the path on which to mount the handler and the handler itself.
func NewRoomServiceHandler(svc *RoomService, opts ...connect.HandlerOption) (string, http.Handler) {
	getRoomState := connect.NewUnaryHandler(
		RoomServiceGetRoomStateProcedure,
		svc.GetRoomState,
		opts...,
	)
	return "/" + RoomServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case RoomServiceGetRoomStateProcedure:
			getRoomState.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// RoomServiceClient calls a remote RoomService.
type RoomServiceClient struct {
	getRoomState *connect.Client[wrapperspb.StringValue, structpb.Struct]
}

func NewRoomServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *RoomServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return &RoomServiceClient{
		getRoomState: connect.NewClient[wrapperspb.StringValue, structpb.Struct](
			httpClient,
			baseURL+RoomServiceGetRoomStateProcedure,
			opts...,
		),
	}
}

// GetRoomState fetches the state of room code.
func (c *RoomServiceClient) GetRoomState(ctx context.Context, code string) (RoomState, error) {
	res, err := c.getRoomState.CallUnary(ctx, connect.NewRequest(wrapperspb.String(code)))
	if err != nil {
		return RoomState{}, err
	}
	return fromStruct(res.Msg)
}

func codeFor(err error) connect.Code {
	switch {
	case errors.Is(err, room.ErrInvalidRoomCode):
		return connect.CodeInvalidArgument
	case errors.Is(err, room.ErrRoomNotFound):
		return connect.CodeNotFound
	case errors.Is(err, room.ErrConnectionUnavailable):
		return connect.CodeUnavailable
	default:
		return connect.CodeInternal
	}
}

func toStruct(state RoomState) (*structpb.Struct, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal room state: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode room state: %w", err)
	}
	return structpb.NewStruct(fields)
}

func fromStruct(st *structpb.Struct) (RoomState, error) {
	raw, err := st.MarshalJSON()
	if err != nil {
		return RoomState{}, fmt.Errorf("failed to encode room state: %w", err)
	}
	var state RoomState
	if err := json.Unmarshal(raw, &state); err != nil {
		return RoomState{}, fmt.Errorf("failed to decode room state: %w", err)
	}
	return state, nil
}
