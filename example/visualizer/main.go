// Command visualizer runs the crowd simulation and streams the broad-phase
// state (fat AABBs, candidate pairs, tree metrics) to connected browsers
// over a websocket, with a small canvas page to watch it live.
package main

import (
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/akmonengine/plume"
	"github.com/akmonengine/plume/geo"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"
)

const (
	arenaSize      = 100.0
	numBoxes       = 150
	boxSize        = 2.0
	updateInterval = 50 * time.Millisecond
	serverAddr     = ":8080"
)

// Frame is one snapshot of the broad phase, serialized to clients
type Frame struct {
	Boxes   []BoxState `json:"boxes"`
	Pairs   [][2]int   `json:"pairs"`
	Height  int        `json:"height"`
	Balance int        `json:"balance"`
	Quality float32    `json:"quality"`
}

// BoxState is a proxy's fat AABB in world coordinates
type BoxState struct {
	Id   int     `json:"id"`
	MinX float32 `json:"minX"`
	MinY float32 `json:"minY"`
	MaxX float32 `json:"maxX"`
	MaxY float32 `json:"maxY"`
}

type box struct {
	id       int
	pos      mgl32.Vec2
	velocity mgl32.Vec2
}

func (b *box) aabb() geo.AABB {
	h := float32(boxSize / 2)
	return geo.AABB{
		Min: b.pos.Sub(mgl32.Vec2{h, h}),
		Max: b.pos.Add(mgl32.Vec2{h, h}),
	}
}

// hub fans frames out to every connected websocket client
type hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func newHub() *hub {
	return &hub{clients: map[*websocket.Conn]bool{}}
}

func (h *hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
}

func (h *hub) broadcast(frame Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteJSON(frame); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func main() {
	h := newHub()

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(indexHTML))
	})
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade: %v", err)
			return
		}
		h.add(conn)
	})

	go simulate(h)

	log.Printf("visualizer listening on %s", serverAddr)
	log.Fatal(http.ListenAndServe(serverAddr, nil))
}

func simulate(h *hub) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	bp := plume.NewBroadPhase(plume.DefaultConfig())

	boxes := make([]*box, numBoxes)
	for i := range boxes {
		b := &box{
			pos:      mgl32.Vec2{r.Float32() * arenaSize, r.Float32() * arenaSize},
			velocity: mgl32.Vec2{r.Float32()*16 - 8, r.Float32()*16 - 8},
		}
		b.id = bp.CreateProxy(b.aabb(), b)
		boxes[i] = b
	}

	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()

	dt := float32(updateInterval.Seconds())
	for range ticker.C {
		for _, b := range boxes {
			displacement := b.velocity.Mul(dt)
			b.pos = b.pos.Add(displacement)

			for i := 0; i < 2; i++ {
				if b.pos[i] < 0 || b.pos[i] > arenaSize {
					b.velocity[i] = -b.velocity[i]
					b.pos[i] = mgl32.Clamp(b.pos[i], 0, arenaSize)
				}
			}

			bp.MoveProxy(b.id, b.aabb(), displacement)
		}

		frame := Frame{
			Boxes:   make([]BoxState, 0, len(boxes)),
			Pairs:   make([][2]int, 0, 64),
			Height:  bp.GetTreeHeight(),
			Balance: bp.GetTreeBalance(),
			Quality: bp.GetTreeQuality(),
		}
		bp.UpdatePairs(func(idA, idB int) {
			frame.Pairs = append(frame.Pairs, [2]int{idA, idB})
		})
		for _, b := range boxes {
			fat := bp.GetFatAABB(b.id)
			frame.Boxes = append(frame.Boxes, BoxState{
				Id:   b.id,
				MinX: fat.Min.X(), MinY: fat.Min.Y(),
				MaxX: fat.Max.X(), MaxY: fat.Max.Y(),
			})
		}

		h.broadcast(frame)
	}
}

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>plume broad phase</title></head>
<body style="background:#111;color:#eee;font-family:monospace">
<div id="stats"></div>
<canvas id="c" width="600" height="600"></canvas>
<script>
const canvas = document.getElementById("c");
const ctx = canvas.getContext("2d");
const scale = 6;
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (e) => {
	const frame = JSON.parse(e.data);
	ctx.clearRect(0, 0, canvas.width, canvas.height);
	const paired = new Set();
	for (const [a, b] of frame.pairs) { paired.add(a); paired.add(b); }
	for (const box of frame.boxes) {
		ctx.strokeStyle = paired.has(box.id) ? "#f55" : "#5a5";
		ctx.strokeRect(box.minX * scale, box.minY * scale,
			(box.maxX - box.minX) * scale, (box.maxY - box.minY) * scale);
	}
	document.getElementById("stats").textContent =
		"pairs: " + frame.pairs.length + "  height: " + frame.height +
		"  balance: " + frame.balance + "  quality: " + frame.quality.toFixed(2);
};
</script>
</body>
</html>`
