// Package shopapi exposes the trading post over HTTP: JSON snapshot endpoints
// the display layer polls, player transaction endpoints, a loopback-guarded
// admin surface and a websocket status stream.
package shopapi

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"tradepost.gg/internal/engine"
	"tradepost.gg/internal/quest"
)

type Server struct {
	post *engine.Post
	log  *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(post *engine.Post, logger *log.Logger) *Server {
	return &Server{
		post: post,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Register wires every route onto the mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/drop", s.handleDrop)
	mux.HandleFunc("/v1/offers", s.handleOffers)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/price", s.handlePrice)
	mux.HandleFunc("/v1/quests", s.handleQuests)

	mux.HandleFunc("/v1/buy", s.handleBuy)
	mux.HandleFunc("/v1/sell", s.handleSell)
	mux.HandleFunc("/v1/sell/preview", s.handleSellPreview)
	mux.HandleFunc("/v1/quests/deliver", s.handleQuestDeliver)
	mux.HandleFunc("/v1/quests/claim", s.handleQuestClaim)
	mux.HandleFunc("/v1/quests/claimall", s.handleQuestClaimAll)
	mux.HandleFunc("/v1/quests/event", s.handleQuestEvent)

	mux.HandleFunc("/v1/watch", s.handleWatch)

	mux.HandleFunc("/admin/v1/regen/buyback", s.adminOnly(s.handleRegenBuyback))
	mux.HandleFunc("/admin/v1/regen/quests", s.adminOnly(s.handleRegenQuests))
	mux.HandleFunc("/admin/v1/state", s.adminOnly(s.handleAdminState))
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func (s *Server) handleDrop(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{
		"items":             s.post.Drop().Current(),
		"seconds_remaining": s.post.Drop().SecondsRemaining(),
		"cycle_index":       s.post.Drop().CycleIndex(),
	})
}

func (s *Server) handleOffers(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{
		"offers":           s.post.Buyback().Offers(),
		"seconds_to_regen": s.post.Buyback().SecondsUntilRegen(),
	})
}

func (s *Server) handleStatus(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(rw, http.StatusOK, s.post.Status())
}

func (s *Server) handlePrice(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	item := strings.TrimSpace(r.URL.Query().Get("item"))
	if item == "" {
		http.Error(rw, "missing item", http.StatusBadRequest)
		return
	}
	if !s.post.Classifier().Known(item) {
		http.Error(rw, "unknown item", http.StatusNotFound)
		return
	}
	tier, cat := s.post.Classifier().Classify(item)
	writeJSON(rw, http.StatusOK, map[string]any{
		"item":      item,
		"tier":      tier.String(),
		"category":  cat.String(),
		"unit":      s.post.PriceBook().UnitPrice(item),
		"buy_price": s.post.Demand().DynamicBuyPrice(item),
	})
}

func (s *Server) handleQuests(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	player := strings.TrimSpace(r.URL.Query().Get("player"))
	if player == "" {
		http.Error(rw, "missing player", http.StatusBadRequest)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{
		"quests":           s.post.QuestViews(player),
		"seconds_to_reset": s.post.Quests().SecondsUntilNextReset(),
	})
}

type txnReq struct {
	Player string `json:"player"`
	Item   string `json:"item,omitempty"`
	Quest  string `json:"quest,omitempty"`
	Units  int    `json:"units,omitempty"`
	Entity string `json:"entity,omitempty"`
	Type   string `json:"type,omitempty"`
	Delta  int    `json:"delta,omitempty"`
}

func decodeTxn(rw http.ResponseWriter, r *http.Request) (txnReq, bool) {
	var req txnReq
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return req, false
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(rw, "bad request body", http.StatusBadRequest)
		return req, false
	}
	if strings.TrimSpace(req.Player) == "" {
		http.Error(rw, "missing player", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (s *Server) handleBuy(rw http.ResponseWriter, r *http.Request) {
	req, ok := decodeTxn(rw, r)
	if !ok {
		return
	}
	out := s.post.Buy(req.Player, req.Item, req.Units)
	status := http.StatusOK
	if !out.OK {
		status = http.StatusConflict
	}
	writeJSON(rw, status, out)
}

func (s *Server) handleSell(rw http.ResponseWriter, r *http.Request) {
	req, ok := decodeTxn(rw, r)
	if !ok {
		return
	}
	out := s.post.Sell(req.Player, req.Item, req.Units)
	status := http.StatusOK
	if !out.OK {
		status = http.StatusConflict
	}
	writeJSON(rw, status, out)
}

func (s *Server) handleSellPreview(rw http.ResponseWriter, r *http.Request) {
	req, ok := decodeTxn(rw, r)
	if !ok {
		return
	}
	writeJSON(rw, http.StatusOK, s.post.PreviewSell(req.Player, req.Item, req.Units))
}

func (s *Server) handleQuestDeliver(rw http.ResponseWriter, r *http.Request) {
	req, ok := decodeTxn(rw, r)
	if !ok {
		return
	}
	st := s.post.DeliverFetch(req.Player, req.Quest)
	resp := map[string]any{"status": deliverStatusString(st)}
	code := http.StatusOK
	if st == quest.DeliverInsufficient || st == quest.DeliverUnknownQuest {
		code = http.StatusConflict
	}
	writeJSON(rw, code, resp)
}

func (s *Server) handleQuestClaim(rw http.ResponseWriter, r *http.Request) {
	req, ok := decodeTxn(rw, r)
	if !ok {
		return
	}
	res := s.post.ClaimQuest(req.Player, req.Quest)
	code := http.StatusOK
	if res.Status != quest.ClaimOK && res.Status != quest.ClaimAlreadyClaimed {
		code = http.StatusConflict
	}
	writeJSON(rw, code, map[string]any{
		"status": claimStatusString(res.Status),
		"reward": res.Reward,
	})
}

func (s *Server) handleQuestClaimAll(rw http.ResponseWriter, r *http.Request) {
	req, ok := decodeTxn(rw, r)
	if !ok {
		return
	}
	count, total := s.post.ClaimAllQuests(req.Player)
	writeJSON(rw, http.StatusOK, map[string]any{"claimed": count, "total": total})
}

// handleQuestEvent feeds kill/fish progress events from the game side.
func (s *Server) handleQuestEvent(rw http.ResponseWriter, r *http.Request) {
	req, ok := decodeTxn(rw, r)
	if !ok {
		return
	}
	switch strings.ToUpper(req.Type) {
	case "KILL":
		s.post.Quests().RecordKill(req.Player, req.Entity)
	case "FISH":
		s.post.Quests().RecordFishCatch(req.Player)
	default:
		http.Error(rw, "unknown event type", http.StatusBadRequest)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true})
}

func deliverStatusString(st quest.DeliverStatus) string {
	switch st {
	case quest.DeliverOK:
		return "delivered"
	case quest.DeliverAlreadyClaimed:
		return "already_claimed"
	case quest.DeliverAlreadyCompleted:
		return "already_completed"
	case quest.DeliverInsufficient:
		return "insufficient_items"
	default:
		return "unknown_quest"
	}
}

func claimStatusString(st quest.ClaimStatus) string {
	switch st {
	case quest.ClaimOK:
		return "claimed"
	case quest.ClaimAlreadyClaimed:
		return "already_claimed"
	case quest.ClaimNotReady:
		return "not_ready"
	default:
		return "failed"
	}
}

func (s *Server) handleRegenBuyback(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ids := s.post.ForceRegenerateBuyback()
	writeJSON(rw, http.StatusOK, map[string]any{"offers": ids})
}

func (s *Server) handleRegenQuests(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ids := s.post.ForceRegenerateQuests()
	writeJSON(rw, http.StatusOK, map[string]any{"quests": ids})
}

func (s *Server) handleAdminState(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{
		"status": s.post.Status(),
		"offers": s.post.Buyback().Offers(),
		"drop":   s.post.Drop().Current(),
	})
}

func (s *Server) adminOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// handleWatch streams a status frame per second over a websocket until the
// client goes away. The display layer uses it to refresh countdowns without
// polling.
func (s *Server) handleWatch(rw http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			frame := map[string]any{
				"type":   "STATUS",
				"status": s.post.Status(),
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}
}
