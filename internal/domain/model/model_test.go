package model_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	model "github.com/okian/ladder/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func completedMatch() model.Match {
	return model.Match{
		ID: "m1", MatchType: model.MatchDoubles, Date: "2026-07-04", Level: 7.0,
		Team1ID: "1", Team2ID: "2", Winner: model.WinnerTeam1,
		Set1Team1: 6, Set1Team2: 3, Set2Team1: 6, Set2Team2: 4,
		Status: model.MatchCompleted,
	}
}

func TestID(t *testing.T) {
	convey.Convey("Given JSON ids", t, func() {
		var v struct {
			A model.ID `json:"a"`
			B model.ID `json:"b"`
			C model.ID `json:"c"`
		}
		err := json.Unmarshal([]byte(`{"a":7,"b":"t-1","c":null}`), &v)

		convey.So(err, convey.ShouldBeNil)
		convey.So(v.A, convey.ShouldEqual, model.ID("7"))
		convey.So(v.B, convey.ShouldEqual, model.ID("t-1"))
		convey.So(v.C.IsZero(), convey.ShouldBeTrue)

		convey.Convey("Objects are rejected", func() {
			var id model.ID
			convey.So(json.Unmarshal([]byte(`{"x":1}`), &id), convey.ShouldNotBeNil)
		})
	})
}

func TestMatchValidate(t *testing.T) {
	convey.Convey("Given a completed match", t, func() {
		m := completedMatch()

		convey.Convey("A straight-sets win is valid", func() {
			convey.So(m.Validate(), convey.ShouldBeNil)
			convey.So(m.MonthKey(), convey.ShouldEqual, "2026-07")
			convey.So(m.DecidedSets(), convey.ShouldEqual, 2)
		})

		convey.Convey("A missing winner is rejected", func() {
			m.Winner = model.WinnerNone
			err := m.Validate()
			convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
		})

		convey.Convey("One decided set is not enough", func() {
			m.Set2Team1, m.Set2Team2 = 0, 0
			convey.So(m.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("Three decided sets with a tiebreak are valid", func() {
			m.Set2Team1, m.Set2Team2 = 3, 6
			m.Set3Team1, m.Set3Team2 = 10, 8
			m.Set3IsTiebreaker = true
			convey.So(m.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("The winner must take the majority of sets", func() {
			m.Winner = model.WinnerTeam2
			convey.So(m.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("A team cannot play itself", func() {
			m.Team2ID = m.Team1ID
			convey.So(m.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("Malformed dates and negative scores are rejected", func() {
			bad := m
			bad.Date = "July 4th"
			convey.So(bad.Validate(), convey.ShouldNotBeNil)

			bad = m
			bad.Set1Team2 = -1
			convey.So(bad.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("A pending match cannot carry a winner", func() {
			m.Status = model.MatchPending
			convey.So(m.Validate(), convey.ShouldNotBeNil)
			m.Winner = model.WinnerNone
			convey.So(m.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestMatchSides(t *testing.T) {
	convey.Convey("Given a match between teams 1 and 2", t, func() {
		m := completedMatch()
		m.Team1Players = []model.ID{"a", "b"}
		m.Team2Players = []model.ID{"c", "d"}

		convey.So(m.SideOf("1"), convey.ShouldEqual, model.Side1)
		convey.So(m.SideOf("2"), convey.ShouldEqual, model.Side2)
		convey.So(m.SideOf("3"), convey.ShouldEqual, model.SideNone)
		convey.So(m.Opponent("2"), convey.ShouldEqual, model.ID("1"))
		convey.So(m.WonBy("1"), convey.ShouldBeTrue)
		convey.So(m.WonBy("2"), convey.ShouldBeFalse)
		convey.So(m.PlayersOf(model.Side2), convey.ShouldResemble, []model.ID{"c", "d"})
		convey.So(m.SetsWonBy(model.Side1), convey.ShouldEqual, 2)
	})

	convey.Convey("WinnerFromSets follows the set majority", t, func() {
		convey.So(model.WinnerFromSets([3]model.SetScore{{Team1: 6, Team2: 4}, {Team1: 3, Team2: 6}, {Team1: 10, Team2: 7}}), convey.ShouldEqual, model.WinnerTeam1)
		convey.So(model.WinnerFromSets([3]model.SetScore{{Team1: 2, Team2: 6}, {Team1: 3, Team2: 6}, {}}), convey.ShouldEqual, model.WinnerTeam2)
		convey.So(model.WinnerFromSets([3]model.SetScore{{Team1: 6, Team2: 4}, {Team1: 3, Team2: 6}, {}}), convey.ShouldEqual, model.WinnerNone)
	})
}

func TestPlayer(t *testing.T) {
	convey.Convey("Given a player", t, func() {
		p := model.Player{ID: "p1", FirstName: "Ann", LastName: "Lee", Gender: model.GenderFemale, NTRPRating: 3.5}

		convey.Convey("Rating falls back to NTRP", func() {
			convey.So(p.Rating(), convey.ShouldEqual, 3.5)
			dyn := 3.72
			p.DynamicRating = &dyn
			convey.So(p.Rating(), convey.ShouldEqual, 3.72)
		})

		convey.Convey("A missing status counts as active", func() {
			convey.So(p.IsActive(), convey.ShouldBeTrue)
			p.Status = model.PlayerInjured
			convey.So(p.IsActive(), convey.ShouldBeFalse)
		})

		convey.Convey("Validate checks gender and rating", func() {
			convey.So(p.Validate(), convey.ShouldBeNil)
			p.Gender = "X"
			convey.So(p.Validate(), convey.ShouldNotBeNil)
			p.Gender = model.GenderMale
			p.NTRPRating = 9
			convey.So(p.Validate(), convey.ShouldNotBeNil)
		})
	})
}

func TestTeamsBlobValidate(t *testing.T) {
	convey.Convey("Given a teams blob", t, func() {
		blob := model.TeamsBlob{
			Teams: []model.Team{
				{ID: "1", Name: "Aces"},
				{ID: "2", Name: "Lobs", Bonuses: model.BonusConfig{UniformType: model.UniformColors, Practices: map[string]int{"2026-07": 2}}},
			},
			Players: []model.Player{
				{ID: "a", FirstName: "A", LastName: "A", Gender: "M", NTRPRating: 3.0, TeamID: "1"},
				{ID: "b", FirstName: "B", LastName: "B", Gender: "F", NTRPRating: 3.5, TeamID: "1"},
				{ID: "c", FirstName: "C", LastName: "C", Gender: "F", NTRPRating: 4.0},
			},
			Trades: []model.Trade{{ID: "t1", PlayerID: "c", FromTeamID: "2", Date: "2026-07-01"}},
		}

		convey.Convey("A consistent blob is valid", func() {
			convey.So(blob.Validate(14), convey.ShouldBeNil)
			convey.So(blob.Roster("1"), convey.ShouldHaveLength, 2)
			convey.So(blob.Directory(), convey.ShouldContainKey, model.ID("c"))
		})

		convey.Convey("A dangling team reference is rejected", func() {
			blob.Players[2].TeamID = "9"
			convey.So(blob.Validate(14), convey.ShouldNotBeNil)
		})

		convey.Convey("The active roster limit is enforced", func() {
			convey.So(blob.Validate(1), convey.ShouldNotBeNil)
			blob.Players[1].Status = model.PlayerInactive
			convey.So(blob.Validate(1), convey.ShouldBeNil)
		})

		convey.Convey("Duplicate ids are rejected", func() {
			blob.Teams = append(blob.Teams, model.Team{ID: "1", Name: "Copy"})
			convey.So(blob.Validate(14), convey.ShouldNotBeNil)
		})

		convey.Convey("Bad practice keys are rejected", func() {
			blob.Teams[1].Bonuses.Practices["July"] = 1
			convey.So(blob.Validate(14), convey.ShouldNotBeNil)
		})

		convey.Convey("Trades must reference a known player", func() {
			blob.Trades[0].PlayerID = "zz"
			convey.So(blob.Validate(14), convey.ShouldNotBeNil)
		})
	})
}

func TestSeason(t *testing.T) {
	convey.Convey("Given a three-month season", t, func() {
		season, err := model.NewSeason([]model.Month{
			{Key: "2026-06", Name: "June", EndDate: "2026-06-30"},
			{Key: "2026-07", Name: "July", EndDate: "2026-07-31"},
			{Key: "2026-08", Name: "August", EndDate: "2026-08-31"},
		})
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("The last month is final", func() {
			final, ok := season.Final()
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(final.Key, convey.ShouldEqual, "2026-08")
			convey.So(season.IsFinal("2026-07"), convey.ShouldBeFalse)
			convey.So(season.Contains("2026-05"), convey.ShouldBeFalse)
		})

		convey.Convey("A month ends at the start of the next day", func() {
			june, _ := season.Month("2026-06")
			convey.So(june.Ended(time.Date(2026, 6, 30, 23, 59, 0, 0, time.UTC)), convey.ShouldBeFalse)
			convey.So(june.Ended(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)), convey.ShouldBeTrue)
		})

		convey.Convey("Out-of-order months are rejected", func() {
			_, err := model.NewSeason([]model.Month{
				{Key: "2026-07", EndDate: "2026-07-31"},
				{Key: "2026-06", EndDate: "2026-06-30"},
			})
			convey.So(err, convey.ShouldNotBeNil)
			_, err = model.NewSeason(nil)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})

	convey.Convey("MonthKeyOf accepts dates and timestamps", t, func() {
		convey.So(model.MonthKeyOf("2026-07-04"), convey.ShouldEqual, "2026-07")
		convey.So(model.MonthKeyOf("2026-07-04T18:00:00Z"), convey.ShouldEqual, "2026-07")
		convey.So(model.MonthKeyOf("07/04/2026"), convey.ShouldEqual, "")
	})
}

func TestCollections(t *testing.T) {
	convey.Convey("Guarded collections are the blob-style ones", t, func() {
		convey.So(model.CollectionTeams.Guarded(), convey.ShouldBeTrue)
		convey.So(model.CollectionCaptains.Guarded(), convey.ShouldBeTrue)
		convey.So(model.CollectionChallenges.Guarded(), convey.ShouldBeFalse)
		convey.So(model.CollectionActivity.Guarded(), convey.ShouldBeFalse)

		c, ok := model.ParseCollection("photos")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(c, convey.ShouldEqual, model.CollectionPhotos)
		_, ok = model.ParseCollection("nope")
		convey.So(ok, convey.ShouldBeFalse)
	})

	convey.Convey("Import locks go stale after the ttl", t, func() {
		start := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
		lock := model.ImportLock{Holder: "dir", StartTime: start}
		convey.So(lock.Stale(start.Add(10*time.Minute), 30*time.Minute), convey.ShouldBeFalse)
		convey.So(lock.Stale(start.Add(31*time.Minute), 30*time.Minute), convey.ShouldBeTrue)
		convey.So(lock.Stale(start.Add(time.Hour), 0), convey.ShouldBeFalse)
	})
}
