package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gmcfx/GM-Capital/internal/handler/mocks"
	"github.com/gmcfx/GM-Capital/internal/model"
	"github.com/gmcfx/GM-Capital/internal/repository"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type rawMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newTestHub(t *testing.T) (*repository.EventBus, *Hub, *httptest.Server) {
	bus := repository.NewEventBus(8, 50*time.Millisecond)
	trading := NewTrading(mocks.NewTradingService(t), testCatalog)
	hub := NewHub(bus, trading)
	srv := httptest.NewServer(NewRouter(trading, hub, nil, nil))
	t.Cleanup(srv.Close)
	return bus, hub, srv
}

func dial(t *testing.T, srv *httptest.Server, accountID string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?account_id=" + accountID
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) rawMessage {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg rawMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubStreamsEvents(t *testing.T) {
	bus, hub, srv := newTestHub(t)
	conn := dial(t, srv, "a1")
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients("a1") == 1 && bus.Listeners("a1") == 1 },
		time.Second, 10*time.Millisecond)

	p := openEURPosition()
	require.NoError(t, bus.Publish(context.Background(), &model.Event{
		ID: "e1", Type: model.PositionOpened, AccountID: "a1", PositionID: p.ID, Position: p, OccurredAt: time.Now(),
	}))

	msg := readMessage(t, conn)
	require.Equal(t, "PositionOpened", msg.Type)
	var position positionResponse
	require.NoError(t, json.Unmarshal(msg.Data, &position))
	require.Equal(t, "p1", position.ID)
	require.Equal(t, "1.10000", position.OpenPrice)
}

func TestHubPushMark(t *testing.T) {
	bus, hub, srv := newTestHub(t)
	conn := dial(t, srv, "a1")
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients("a1") == 1 }, time.Second, 10*time.Millisecond)

	hub.PushMark("a2", []model.Valuation{{Position: openEURPosition(), MarkPrice: dec("1.2"), UnrealizedPnL: dec("1000")}})
	hub.PushMark("a1", []model.Valuation{{Position: openEURPosition(), MarkPrice: dec("1.1048"), UnrealizedPnL: dec("48")}})

	msg := readMessage(t, conn)
	require.Equal(t, "MarkToMarket", msg.Type)
	var valuations []valuationResponse
	require.NoError(t, json.Unmarshal(msg.Data, &valuations))
	require.Len(t, valuations, 1)
	require.Equal(t, "48.00", valuations[0].UnrealizedPnL)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients("a1") == 0 && bus.Listeners("a1") == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestHubRequiresAccount(t *testing.T) {
	_, _, srv := newTestHub(t)

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
