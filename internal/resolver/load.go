package resolver

import (
	"strings"

	"github.com/ibeckermayer/feedsync/internal/types"
)

// Profiles worksheet column names
const (
	ProfileNicknameColumn = "NICKNAME"
	ProfileGenderColumn   = "GENDER"
	ProfileCityColumn     = "CITY"
)

// ProfilesFromRows reads profiles from worksheet rows. The first row is the
// header; columns are located by name so the profiles table may carry any
// number of extra columns.
func ProfilesFromRows(rows [][]string) []types.Profile {
	if len(rows) == 0 {
		return nil
	}
	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[strings.TrimSpace(h)] = i
	}
	nickCol, ok := idx[ProfileNicknameColumn]
	if !ok {
		return nil
	}

	var profiles []types.Profile
	for _, row := range rows[1:] {
		nick := cell(row, nickCol)
		if nick == "" {
			continue
		}
		p := types.Profile{Nickname: nick}
		if c, ok := idx[ProfileGenderColumn]; ok {
			p.Gender = cell(row, c)
		}
		if c, ok := idx[ProfileCityColumn]; ok {
			p.City = cell(row, c)
		}
		profiles = append(profiles, p)
	}
	return profiles
}

// TagSetsFromRows reads the three tag lists from columns A, B and C of the
// tag worksheet, skipping the header row.
func TagSetsFromRows(rows [][]string) TagSets {
	var sets TagSets
	if len(rows) < 2 {
		return sets
	}
	for _, row := range rows[1:] {
		for i := range sets {
			if v := cell(row, i); v != "" {
				sets[i] = append(sets[i], v)
			}
		}
	}
	return sets
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
