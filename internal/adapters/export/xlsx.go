// Package export renders standings as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/okian/ladder/internal/domain/ranking"
)

// Sheet names of the leaderboard workbook.
const (
	SheetStandings = "Leaderboard"
	SheetBonuses   = "Bonuses"
)

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	standingsHeader = []interface{}{
		"Rank", "Team", "Total", "Match Points", "Wins", "Losses",
		"Bonus", "Capped Bonus", "Sets Won", "Games Won", "Played",
	}
	bonusHeader = []interface{}{
		"Team", "Month", "Matches", "Volume", "Penalty", "Full Roster",
		"Opponent Variety", "Level Variety", "Mixed Doubles", "Practice",
	}
)

// Leaderboard writes standings as an xlsx workbook with one row per team on
// the first sheet and the monthly bonus breakdown on the second.
func Leaderboard(w io.Writer, standings []ranking.Standing, asOf time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetStandings); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetBonuses); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	title := []interface{}{"Standings as of", asOf.UTC().Format(time.RFC3339)}
	if err := setRow(f, SheetStandings, 1, title); err != nil {
		return err
	}
	if err := setRow(f, SheetStandings, 2, standingsHeader); err != nil {
		return err
	}
	for i, st := range standings {
		r := st.Score
		row := []interface{}{
			st.Rank, st.TeamName, r.TotalPoints, r.MatchWinPoints, r.MatchWins, r.MatchLosses,
			r.BonusPoints, r.CappedBonus, r.SetsWon, r.GamesWon, r.MatchesPlayed,
		}
		if err := setRow(f, SheetStandings, i+3, row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SheetStandings, "B", "B", 28); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := setRow(f, SheetBonuses, 1, bonusHeader); err != nil {
		return err
	}
	line := 2
	for _, st := range standings {
		for _, m := range st.Score.Breakdown.Months {
			row := []interface{}{
				st.TeamName, m.Key, m.Matches, m.Volume, m.Penalty, m.FullRoster,
				m.OpponentVariety, m.LevelVariety, m.MixedDoubles, m.Practice,
			}
			if err := setRow(f, SheetBonuses, line, row); err != nil {
				return err
			}
			line++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	axis, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, axis, &cells); err != nil {
		return fmt.Errorf("set %s row %d: %w", sheet, row, err)
	}
	return nil
}
