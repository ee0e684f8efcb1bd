package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден
	ErrNotFound           = errors.New("requested resource not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrFolderNotFound     = errors.New("folder not found")
	ErrMatchNotFound      = errors.New("match not found")

	// Ошибки валидации
	ErrValidationFailed       = errors.New("validation failed")
	ErrInvalidSettings        = errors.New("invalid tournament settings")
	ErrInvalidFormat          = errors.New("unsupported tournament format")
	ErrTeamNameRequired       = errors.New("team name is required")
	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrFolderNameRequired     = errors.New("folder name is required")
	ErrUnknownTeam            = errors.New("team does not belong to this tournament or owner")
	ErrDuplicateTeam          = errors.New("team listed more than once")
	ErrFolderCycle            = errors.New("folder cannot be moved inside itself")
	ErrInvalidScore           = errors.New("invalid match score")
	ErrPenaltiesNotLevel      = errors.New("penalties are only allowed when the tie is level")
	ErrExtraTimeNotAllowed    = errors.New("extra time and penalties are only allowed in a deciding knockout match")
	ErrInvalidImport          = errors.New("invalid import document")

	// Ошибки конфликтов и состояния турнира
	ErrTeamNameConflict         = errors.New("team name is already in use")
	ErrTournamentNameConflict   = errors.New("tournament name already exists")
	ErrTeamInUse                = errors.New("team is used by tournament matches")
	ErrNotEnoughTeams           = errors.New("at least two teams are required")
	ErrFixturesAlreadyGenerated = errors.New("fixtures have already been generated")
	ErrFixturesNotGenerated     = errors.New("fixtures have not been generated yet")
	ErrRoundInProgress          = errors.New("the current round is not finished")
	ErrStageNotResolved         = errors.New("current stage is not resolved yet")
	ErrStageAlreadyAdvanced     = errors.New("the next stage already exists")
	ErrQualificationConfirmed   = errors.New("qualification is already confirmed")
	ErrNotGroupsKnockout        = errors.New("operation requires a groups and knockout tournament")
	ErrByeMatch                 = errors.New("bye matches cannot be changed")
	ErrPublishingDisabled       = errors.New("snapshot publishing is not configured")
	ErrNothingToSimulate        = errors.New("no unplayed matches to simulate")

	// ErrMatchesListFailed - общая ошибка для листинга матчей
	ErrMatchesListFailed = errors.New("failed to list matches")
)
