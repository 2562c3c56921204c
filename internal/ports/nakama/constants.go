package nakama

const (
	// RpcConnect is the Nakama RPC id clients call to create or enter a lobby.
	RpcConnect = "connect"

	// RpcChangelog returns release notes newer than the client's version.
	RpcChangelog = "changelog"

	// MatchNameLobby is the authoritative match handler name registered with Nakama.
	MatchNameLobby = "cardsagainst_lobby"

	// ServiceName identifies the module to the tracer provider.
	ServiceName = "cardsagainst"
)

// Match label keys. Clients list open lobbies with "+label.open:T label.game:cardsagainst".
const (
	LabelKeyGame    = "game"
	LabelKeyLobby   = "lobby"
	LabelKeyPhase   = "phase"
	LabelKeyPlayers = "players"
	LabelKeyOpen    = "open"

	labelGame = "cardsagainst"
)

// Metadata key carrying the ticket on socket match join.
const MetadataKeyTicket = "ticket"

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartGame      int64 = 1
	OpMakeTurn       int64 = 2
	OpOpenTableCard  int64 = 3
	OpPickTurnWinner int64 = 4
	OpContinueGame   int64 = 5
	OpRefreshHand    int64 = 6

	// Server -> Client events
	OpOwnerChanged       int64 = 101
	OpPlayerJoined       int64 = 102
	OpPlayerLeft         int64 = 103
	OpPlayerConnected    int64 = 104
	OpPlayerDisconnected int64 = 105
	OpGameStarted        int64 = 106 // send privately
	OpTurnStarted        int64 = 107 // send privately
	OpPlayerReady        int64 = 108
	OpTableCardOpened    int64 = 109
	OpTurnEnded          int64 = 110
	OpAllPlayersReady    int64 = 111
	OpGameFinished       int64 = 112
	OpWelcome            int64 = 113 // send privately
	OpHandRefreshed      int64 = 114 // send privately
	OpPlayerScoreChanged int64 = 115
	OpGameError          int64 = 199 // send privately
)
