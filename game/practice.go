package game

import (
	"slices"
	"sync"
	"time"

	"github.com/ardacey/Lexo/shared/logger"
)

type PracticeState struct {
	ID            string   `json:"sessionId"`
	LetterPool    []string `json:"letterPool"`
	Score         int      `json:"score"`
	WordsFound    []string `json:"wordsFound"`
	TimeRemaining int      `json:"timeRemaining"`
	Active        bool     `json:"isActive"`
}

// PracticeSubmission is the answer to a practice word. Rejected words are
// reported in Error and leave the session untouched.
type PracticeSubmission struct {
	PracticeState
	Accepted  bool   `json:"success"`
	Word      string `json:"word,omitempty"`
	WordScore int    `json:"wordScore,omitempty"`
	Error     string `json:"error,omitempty"`
}

type PracticeSummary struct {
	ID             string   `json:"sessionId"`
	FinalScore     int      `json:"finalScore"`
	WordsFound     []string `json:"wordsFound"`
	TotalWords     int      `json:"totalWords"`
	Duration       float64  `json:"duration"`
	WordsPerMinute float64  `json:"wordsPerMinute"`
}

type practiceSession struct {
	id        string
	userID    string
	pool      []string
	score     int
	words     []string
	used      map[string]struct{}
	startedAt time.Time
	duration  time.Duration
	endedAt   time.Time
}

func (p *practiceSession) ended(now time.Time) bool {
	return !p.endedAt.IsZero() || now.Sub(p.startedAt) >= p.duration
}

func (p *practiceSession) state(now time.Time) PracticeState {
	return PracticeState{
		ID:            p.id,
		LetterPool:    slices.Clone(p.pool),
		Score:         p.score,
		WordsFound:    slices.Clone(p.words),
		TimeRemaining: seconds(max(0, p.duration-now.Sub(p.startedAt))),
		Active:        !p.ended(now),
	}
}

// practiceStore keeps single-player sessions. They never touch the registry
// and write no stats.
type practiceStore struct {
	mu       sync.Mutex
	sessions map[string]*practiceSession
	byUser   map[string]string
}

func newPracticeStore() *practiceStore {
	return &practiceStore{
		sessions: make(map[string]*practiceSession),
		byUser:   make(map[string]string),
	}
}

// sessionLocked returns the session only to its owner.
func (ps *practiceStore) sessionLocked(sessionID, userID string) (*practiceSession, error) {
	p, ok := ps.sessions[sessionID]
	if !ok || p.userID != userID {
		return nil, ErrPracticeNotFound
	}
	return p, nil
}

func (ps *practiceStore) removeLocked(p *practiceSession) {
	delete(ps.sessions, p.id)
	if ps.byUser[p.userID] == p.id {
		delete(ps.byUser, p.userID)
	}
}

// StartPractice opens a timed single-player session. A non-positive
// duration takes the default, longer ones are capped. A user has one
// session at a time; starting again drops the previous one.
func (s *Service) StartPractice(userID string, duration time.Duration) PracticeState {
	if duration <= 0 {
		duration = s.settings.PracticeDuration
	}
	duration = min(duration, s.settings.PracticeMaxDuration)
	now := s.clock.Now()
	p := &practiceSession{
		id:        s.idGen.Generate(),
		userID:    userID,
		pool:      s.letters.Pool(s.settings.PracticePoolSize),
		words:     []string{},
		used:      make(map[string]struct{}),
		startedAt: now,
		duration:  duration,
	}

	s.practice.mu.Lock()
	defer s.practice.mu.Unlock()
	if old, ok := s.practice.sessions[s.practice.byUser[userID]]; ok {
		s.practice.removeLocked(old)
	}
	s.practice.sessions[p.id] = p
	s.practice.byUser[userID] = p.id
	logger.Debugf("[Practice %s] started for %s (%s)", p.id, userID, duration)
	return p.state(now)
}

func (s *Service) SubmitPracticeWord(sessionID, userID, word string) (PracticeSubmission, error) {
	normalized := NormalizeWord(word)
	now := s.clock.Now()

	s.practice.mu.Lock()
	defer s.practice.mu.Unlock()
	p, err := s.practice.sessionLocked(sessionID, userID)
	if err != nil {
		return PracticeSubmission{}, err
	}
	if p.ended(now) {
		return PracticeSubmission{}, ErrPracticeEnded
	}

	if err := validateWord(normalized, s.settings.MinWordLength, p.used, p.pool, s.dict); err != nil {
		return PracticeSubmission{
			PracticeState: p.state(now),
			Word:          normalized,
			Error:         ErrorCode(err),
		}, nil
	}

	letters := splitLetters(normalized)
	remaining := removeLetters(p.pool, letters)
	p.pool = append(remaining, s.letters.Replenish(letters, remaining)...)
	score := ScoreWord(normalized)
	p.score += score
	p.words = append(p.words, normalized)
	p.used[normalized] = struct{}{}

	return PracticeSubmission{
		PracticeState: p.state(now),
		Accepted:      true,
		Word:          normalized,
		WordScore:     score,
	}, nil
}

func (s *Service) PracticeStatus(sessionID, userID string) (PracticeState, error) {
	s.practice.mu.Lock()
	defer s.practice.mu.Unlock()
	p, err := s.practice.sessionLocked(sessionID, userID)
	if err != nil {
		return PracticeState{}, err
	}
	return p.state(s.clock.Now()), nil
}

// EndPractice closes the session and summarizes it. Ending twice returns
// the same summary.
func (s *Service) EndPractice(sessionID, userID string) (PracticeSummary, error) {
	now := s.clock.Now()
	s.practice.mu.Lock()
	defer s.practice.mu.Unlock()
	p, err := s.practice.sessionLocked(sessionID, userID)
	if err != nil {
		return PracticeSummary{}, err
	}
	if p.endedAt.IsZero() {
		p.endedAt = now
	}

	played := min(p.endedAt.Sub(p.startedAt), p.duration)
	summary := PracticeSummary{
		ID:         p.id,
		FinalScore: p.score,
		WordsFound: slices.Clone(p.words),
		TotalWords: len(p.words),
		Duration:   played.Seconds(),
	}
	if played > 0 {
		summary.WordsPerMinute = float64(len(p.words)) / played.Minutes()
	}
	return summary, nil
}

// SweepPractice drops sessions that ended longer than the retention ago.
func (s *Service) SweepPractice() int {
	now := s.clock.Now()
	s.practice.mu.Lock()
	defer s.practice.mu.Unlock()
	removed := 0
	for _, p := range s.practice.sessions {
		end := p.startedAt.Add(p.duration)
		if !p.endedAt.IsZero() && p.endedAt.Before(end) {
			end = p.endedAt
		}
		if now.Sub(end) >= s.settings.PracticeRetention {
			s.practice.removeLocked(p)
			removed++
		}
	}
	return removed
}

// ValidateWord checks a word against the length rule and the dictionary
// only, without a letter pool.
func (s *Service) ValidateWord(word string) (string, error) {
	normalized := NormalizeWord(word)
	if len(splitLetters(normalized)) < s.settings.MinWordLength {
		return normalized, ErrWordTooShort
	}
	if !s.dict.Contains(normalized) {
		return normalized, ErrInvalidDictionaryWord
	}
	return normalized, nil
}
