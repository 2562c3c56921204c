package domain

// Phase represents the lifecycle stage of a lobby.
type Phase string

const (
	// PhaseGathering is the pre-game state where players can join and the owner starts the game.
	PhaseGathering Phase = "gathering"
	// PhaseTurns is the state where non-lead players submit punchline cards.
	PhaseTurns Phase = "turns"
	// PhaseJudgement is the state where the lead opens table cards and picks a winner.
	PhaseJudgement Phase = "judgement"
	// PhaseFinished is the state after a player reached the winning score.
	PhaseFinished Phase = "finished"
)
