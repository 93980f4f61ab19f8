package services

import (
	"log"
	"sort"
	"strings"

	"github.com/TaCeiN/max-task-mvp/internal/database"
	"github.com/TaCeiN/max-task-mvp/internal/models"

	"gorm.io/gorm"
)

type SearchResult struct {
	Note  models.Note `json:"note"`
	Score float64     `json:"score"`
}

type SearchService struct {
	db *gorm.DB
}

func NewSearchService() *SearchService {
	return &SearchService{
		db: database.GetDB(),
	}
}

// SearchNotes finds a user's notes by title or content, combining partial
// matching with trigram fuzzy matching for typos
func (s *SearchService) SearchNotes(userID uint, searchTerm string, limit int) ([]models.Note, error) {
	cleanTerm := strings.TrimSpace(searchTerm)
	if cleanTerm == "" {
		return []models.Note{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var results []SearchResult

	partialResults, err := s.partialSearch(userID, cleanTerm)
	if err != nil {
		log.Printf("Partial search error: %v", err)
	} else {
		results = append(results, partialResults...)
	}

	fuzzyResults, err := s.fuzzySearch(userID, cleanTerm)
	if err != nil {
		log.Printf("Fuzzy search error: %v", err)
	} else {
		results = append(results, fuzzyResults...)
	}

	combined := combineAndRankResults(results)
	if len(combined) > limit {
		combined = combined[:limit]
	}

	notes := make([]models.Note, 0, len(combined))
	for _, result := range combined {
		notes = append(notes, result.Note)
	}
	return notes, nil
}

// partialSearch matches title and content substrings, title hits first
func (s *SearchService) partialSearch(userID uint, searchTerm string) ([]SearchResult, error) {
	pattern := "%" + strings.ToLower(searchTerm) + "%"

	var notes []models.Note
	err := s.db.Preload("Tags").
		Where("user_id = ? AND (LOWER(title) LIKE ? OR LOWER(content::text) LIKE ?)", userID, pattern, pattern).
		Limit(30).
		Find(&notes).Error
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(notes))
	for _, note := range notes {
		score := 1.0
		if strings.Contains(strings.ToLower(note.Title), strings.ToLower(searchTerm)) {
			score = 3.0
		}
		results = append(results, SearchResult{Note: note, Score: score * 10})
	}
	return results, nil
}

// fuzzySearch uses pg_trgm similarity on titles to absorb typos
func (s *SearchService) fuzzySearch(userID uint, searchTerm string) ([]SearchResult, error) {
	query := `
		SELECT id, similarity(title, $1) as fuzzy_score
		FROM "note"
		WHERE user_id = $2
		  AND title % $1
		  AND similarity(title, $1) > 0.3
		ORDER BY fuzzy_score DESC
		LIMIT 30
	`

	rows, err := s.db.Raw(query, searchTerm, userID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type scored struct {
		id    uint
		score float64
	}
	var hits []scored
	for rows.Next() {
		var hit scored
		if err := rows.Scan(&hit.id, &hit.score); err != nil {
			log.Printf("Error scanning fuzzy result: %v", err)
			continue
		}
		hits = append(hits, hit)
	}

	var results []SearchResult
	for _, hit := range hits {
		var note models.Note
		if err := s.db.Preload("Tags").First(&note, hit.id).Error; err != nil {
			continue
		}
		results = append(results, SearchResult{Note: note, Score: hit.score * 50})
	}
	return results, nil
}

// combineAndRankResults merges strategy results, keeping the best score per note
func combineAndRankResults(results []SearchResult) []SearchResult {
	noteMap := make(map[uint]SearchResult)
	for _, result := range results {
		existing, exists := noteMap[result.Note.ID]
		if !exists || result.Score > existing.Score {
			noteMap[result.Note.ID] = result
		}
	}

	finalResults := make([]SearchResult, 0, len(noteMap))
	for _, result := range noteMap {
		finalResults = append(finalResults, result)
	}

	sort.Slice(finalResults, func(i, j int) bool {
		return finalResults[i].Score > finalResults[j].Score
	})
	return finalResults
}
