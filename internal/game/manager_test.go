package game

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pongarena/backend/internal/config"
	"github.com/pongarena/backend/internal/models"
)

// fakeHub records outbound messages in place of the websocket hub.
type fakeHub struct {
	mu      sync.Mutex
	rooms   map[string][]interface{}
	players map[string][]interface{}
}

func newFakeHub() *fakeHub {
	return &fakeHub{
		rooms:   make(map[string][]interface{}),
		players: make(map[string][]interface{}),
	}
}

func (f *fakeHub) SendToPlayer(playerID string, message interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.players[playerID] = append(f.players[playerID], message)
}

func (f *fakeHub) BroadcastToRoom(roomID string, message interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[roomID] = append(f.rooms[roomID], message)
}

// roomMessages returns the broadcasts of a given type sent to a room.
func (f *fakeHub) roomMessages(roomID, msgType string) []map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]interface{}
	for _, m := range f.rooms[roomID] {
		if mm, ok := m.(map[string]interface{}); ok && mm["type"] == msgType {
			out = append(out, mm)
		}
	}
	return out
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []models.MatchRecord
}

func (f *fakeRecorder) RecordMatchResult(p1, p2 string, s1, s2 int) (*models.MatchRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := models.MatchRecord{Player1: p1, Player2: p2, Score1: s1, Score2: s2}
	f.records = append(f.records, rec)
	return &rec, nil
}

type fakeIssuer struct{}

func (fakeIssuer) Issue(roomID, mode string, users []string, tournamentID string) (string, error) {
	return "ticket:" + roomID, nil
}

func testAppConfig() *config.Config {
	return &config.Config{
		CanvasWidth:       800,
		CanvasHeight:      600,
		PaddleWidth:       15,
		PaddleHeight:      100,
		BallDiameter:      20,
		BallSpeed:         350,
		PaddleSpeed:       550,
		SpeedupFactor:     1.05,
		WinScore:          10,
		TickRate:          30,
		BroadcastRate:     20,
		ServeDelayMillis:  1000,
		CollisionSamples:  50,
		AISpeed:           550,
		AIPredictSeconds:  1,
		AIDeadband:        15,
		AIErrorRange:      100,
		AIPredictMaxSteps: 50,
		TournamentSize:    4,
	}
}

func newTestManager() (*GameManager, *fakeHub, *fakeRecorder) {
	hub := newFakeHub()
	rec := &fakeRecorder{}
	gm := NewGameManager(testAppConfig(), hub, rec, NewTournamentManager(), fakeIssuer{})
	return gm, hub, rec
}

func TestCreateOrGetRoomIdempotentUnderConcurrency(t *testing.T) {
	gm, _, _ := newTestManager()

	const joiners = 32
	rooms := make([]*Room, joiners)
	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rooms[i] = gm.CreateOrGetRoom("room_x", ModePVP, "")
		}(i)
	}
	wg.Wait()

	for i := 1; i < joiners; i++ {
		require.Same(t, rooms[0], rooms[i], "joiner %d got a different room", i)
	}
	assert.Equal(t, 1, gm.RoomCount())
}

func TestSideAssignmentFirstLeftSecondRightThirdSpectates(t *testing.T) {
	gm, _, _ := newTestManager()
	room := gm.CreateOrGetRoom("room_x", ModePVP, "")

	assert.Equal(t, SideLeft, gm.AddPlayer(room, "p1"))
	assert.Equal(t, SideRight, gm.AddPlayer(room, "p2"))
	assert.Equal(t, Side(""), gm.AddPlayer(room, "p3"))

	room.Lock()
	defer room.Unlock()
	assert.Len(t, room.Players, 2)
	assert.Contains(t, room.Spectators, "p3")
}

func TestRejoinKeepsSide(t *testing.T) {
	gm, _, _ := newTestManager()
	room := gm.CreateOrGetRoom("room_x", ModePVP, "")

	gm.AddPlayer(room, "p1")
	gm.AddPlayer(room, "p2")
	assert.Equal(t, SideLeft, gm.AddPlayer(room, "p1"))
}

func TestRoomStartsWhenAllReady(t *testing.T) {
	gm, _, _ := newTestManager()
	room := gm.CreateOrGetRoom("room_x", ModePVP, "")
	gm.AddPlayer(room, "p1")
	gm.AddPlayer(room, "p2")

	gm.SetReady(room, "p1")
	room.Lock()
	started := room.Started
	room.Unlock()
	require.False(t, started, "room started with one ready player")

	gm.SetReady(room, "p2")
	room.Lock()
	started = room.Started
	room.Unlock()
	assert.True(t, started)
}

func TestPVCRoomSeatsOneAgainstAI(t *testing.T) {
	gm, _, _ := newTestManager()
	room := gm.CreateOrGetRoom("room_x", ModePVC, "")

	require.NotNil(t, room.AI)
	assert.Equal(t, SideLeft, gm.AddPlayer(room, "p1"))
	// Second joiner can't take the AI's paddle.
	assert.Equal(t, Side(""), gm.AddPlayer(room, "p2"))

	gm.SetReady(room, "p1")
	room.Lock()
	defer room.Unlock()
	assert.True(t, room.Started)
}

func TestLastPlayerLeavingRetiresRoom(t *testing.T) {
	gm, _, _ := newTestManager()
	room := gm.CreateOrGetRoom("room_x", ModePVP, "")
	gm.AddPlayer(room, "p1")
	gm.AddPlayer(room, "p2")

	gm.RemovePlayer(room, "p1")
	assert.Equal(t, 1, gm.RoomCount())

	gm.RemovePlayer(room, "p2")
	assert.Equal(t, 0, gm.RoomCount())
}

func TestSpectatorInputIgnored(t *testing.T) {
	gm, _, _ := newTestManager()
	room := gm.CreateOrGetRoom("room_x", ModePVP, "")
	gm.AddPlayer(room, "p1")
	gm.AddPlayer(room, "p2")
	gm.AddPlayer(room, "p3")

	gm.SetPlayerInput(room, "p3", InputState{Up: true})
	room.Lock()
	defer room.Unlock()
	_, seated := room.Players["p3"]
	assert.False(t, seated)
}

func TestGameOverRecordsResultAndResetsForRematch(t *testing.T) {
	gm, hub, rec := newTestManager()
	room := gm.CreateOrGetRoom("room_x", ModePVP, "")
	gm.AddPlayer(room, "p1")
	gm.AddPlayer(room, "p2")

	room.Lock()
	left := room.PlayerBySide(SideLeft)
	room.Paddle(SideLeft).Score = 10
	room.Paddle(SideRight).Score = 7
	room.finished = true
	room.Unlock()

	gm.reportRoundOver(room)

	msgs := hub.roomMessages("room_x", "game_over")
	require.Len(t, msgs, 1)
	assert.Equal(t, left, msgs[0]["winner"])

	rec.mu.Lock()
	require.Len(t, rec.records, 1)
	assert.Equal(t, 10, rec.records[0].Score1)
	assert.Equal(t, 7, rec.records[0].Score2)
	rec.mu.Unlock()

	room.Lock()
	defer room.Unlock()
	assert.Equal(t, 0, room.Left.Score)
	assert.Equal(t, 0, room.Right.Score)
	assert.False(t, room.Started)
	assert.False(t, room.finished)
	for _, p := range room.Players {
		assert.False(t, p.Ready)
	}
}

func TestAIGameOverNamesComputer(t *testing.T) {
	gm, hub, _ := newTestManager()
	room := gm.CreateOrGetRoom("room_x", ModePVC, "")
	gm.AddPlayer(room, "p1")

	room.Lock()
	room.Right.Score = 10
	room.Left.Score = 3
	room.finished = true
	room.Unlock()

	gm.reportRoundOver(room)

	msgs := hub.roomMessages("room_x", "ai_game_over")
	require.Len(t, msgs, 1)
	assert.Equal(t, "Computer", msgs[0]["winner"])
}

// createBracket registers a bracket with its opening pairing drafted, the
// way the matchmaker hands brackets to the game layer.
func createBracket(t *testing.T, gm *GameManager, id string, players []string) {
	t.Helper()
	gm.tournaments.Create(id, players)
	_, err := gm.tournaments.AdvanceNextMatch(id, "")
	require.NoError(t, err)
}

func TestTournamentRoomSeatsPairingAndSpectatesRest(t *testing.T) {
	gm, _, _ := newTestManager()
	createBracket(t, gm, "trn_1", []string{"A", "B", "C", "D"})
	room := gm.CreateOrGetRoom("room_x", ModeTournament, "trn_1")

	assert.Equal(t, SideLeft, gm.AddPlayer(room, "A"))
	assert.Equal(t, SideRight, gm.AddPlayer(room, "B"))
	assert.Equal(t, Side(""), gm.AddPlayer(room, "C"))
	assert.Equal(t, Side(""), gm.AddPlayer(room, "D"))
}

func TestTournamentConcurrentJoinsNeverMutateBracket(t *testing.T) {
	// All four entrants connect at once. Joins must not draft pairings, so
	// however the joins interleave the bracket holds exactly one pairing
	// and the room seats exactly one player per side.
	for trial := 0; trial < 50; trial++ {
		gm, _, _ := newTestManager()
		createBracket(t, gm, "trn_1", []string{"A", "B", "C", "D"})
		room := gm.CreateOrGetRoom("room_x", ModeTournament, "trn_1")

		players := []string{"A", "B", "C", "D"}
		var wg sync.WaitGroup
		for _, p := range players {
			wg.Add(1)
			go func(p string) {
				defer wg.Done()
				gm.AddPlayer(room, p)
			}(p)
		}
		wg.Wait()

		require.Len(t, gm.tournaments.CurrentPairing("trn_1"), 2)

		room.Lock()
		left := room.PlayerBySide(SideLeft)
		right := room.PlayerBySide(SideRight)
		seated := len(room.Players)
		watching := len(room.Spectators)
		room.Unlock()
		require.Equal(t, "A", left)
		require.Equal(t, "B", right)
		require.Equal(t, 2, seated)
		require.Equal(t, 2, watching)

		// The opening match still resolves: B out, C and D pair next.
		next, err := gm.tournaments.AdvanceNextMatch("trn_1", "B")
		require.NoError(t, err)
		require.True(t, next.Pairing)
		require.Equal(t, [2]string{"C", "D"}, next.Players)
	}
}

func TestTournamentRequiresSpectatorReadiness(t *testing.T) {
	gm, _, _ := newTestManager()
	createBracket(t, gm, "trn_1", []string{"A", "B", "C", "D"})
	room := gm.CreateOrGetRoom("room_x", ModeTournament, "trn_1")
	for _, p := range []string{"A", "B", "C", "D"} {
		gm.AddPlayer(room, p)
	}

	gm.SetReady(room, "A")
	gm.SetReady(room, "B")
	gm.SetReady(room, "C")
	room.Lock()
	started := room.Started
	room.Unlock()
	require.False(t, started, "room started before every spectator was ready")

	gm.SetReady(room, "D")
	room.Lock()
	defer room.Unlock()
	assert.True(t, room.Started)
}

func TestTournamentGameOverIssuesNextPairing(t *testing.T) {
	gm, hub, _ := newTestManager()
	createBracket(t, gm, "trn_1", []string{"A", "B", "C", "D"})
	room := gm.CreateOrGetRoom("room_x", ModeTournament, "trn_1")
	for _, p := range []string{"A", "B", "C", "D"} {
		gm.AddPlayer(room, p)
	}

	room.Lock()
	room.Left.Score = 10 // A wins, B is out
	room.Right.Score = 4
	room.finished = true
	room.Unlock()

	gm.reportRoundOver(room)

	msgs := hub.roomMessages("room_x", "tournament")
	require.Len(t, msgs, 1)
	assert.Equal(t, "next_match", msgs[0]["status"])

	next, ok := msgs[0]["next"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []string{"C", "D"}, next["players"])
	assert.NotEmpty(t, next["ticket"])
	assert.NotEmpty(t, next["room_id"])

	// The finished room is retired; survivors reconnect with the ticket.
	assert.Equal(t, 0, gm.RoomCount())
	assert.Equal(t, []string{"C", "D"}, gm.tournaments.CurrentPairing("trn_1"))
}

func TestTournamentFinalAnnouncesChampion(t *testing.T) {
	gm, hub, _ := newTestManager()
	createBracket(t, gm, "trn_1", []string{"A", "B"})
	room := gm.CreateOrGetRoom("room_x", ModeTournament, "trn_1")
	gm.AddPlayer(room, "A")
	gm.AddPlayer(room, "B")

	room.Lock()
	room.Left.Score = 10
	room.Right.Score = 8
	room.finished = true
	room.Unlock()

	gm.reportRoundOver(room)

	msgs := hub.roomMessages("room_x", "tournament")
	require.Len(t, msgs, 1)
	assert.Equal(t, "finished", msgs[0]["status"])
	assert.Equal(t, "A", msgs[0]["winner"])
	assert.False(t, gm.tournaments.Exists("trn_1"))
	assert.Equal(t, 0, gm.RoomCount())
}

func TestAliasCarriesIntoResults(t *testing.T) {
	gm, hub, _ := newTestManager()
	room := gm.CreateOrGetRoom("room_x", ModePVP, "")
	gm.AddPlayer(room, "p1")
	gm.AddPlayer(room, "p2")
	gm.SetPlayerAlias(room, "p1", "Ace")
	gm.SetPlayerAlias(room, "p2", "Blitz")

	room.Lock()
	leftID := room.PlayerBySide(SideLeft)
	room.Paddle(SideLeft).Score = 10
	room.finished = true
	room.Unlock()

	wantWinner := "Ace"
	if leftID == "p2" {
		wantWinner = "Blitz"
	}

	gm.reportRoundOver(room)

	msgs := hub.roomMessages("room_x", "game_over")
	require.Len(t, msgs, 1)
	assert.Equal(t, wantWinner, msgs[0]["winner"])
}

func TestManyRoomsIndependent(t *testing.T) {
	gm, _, _ := newTestManager()
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("room_%d", i)
		room := gm.CreateOrGetRoom(id, ModePVP, "")
		gm.AddPlayer(room, fmt.Sprintf("l%d", i))
		gm.AddPlayer(room, fmt.Sprintf("r%d", i))
	}
	assert.Equal(t, 10, gm.RoomCount())
}
