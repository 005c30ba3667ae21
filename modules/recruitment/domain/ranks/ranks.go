// Package ranks holds the static rank ladder and the badge range each tier draws from.
package ranks

import (
	"fmt"
	"strconv"
	"strings"
)

// BadgeRange is an inclusive numeric range of badge numbers under one prefix.
type BadgeRange struct {
	Prefix string
	Min    int
	Max    int
}

func (r BadgeRange) Contains(n int) bool {
	return n >= r.Min && n <= r.Max
}

func (r BadgeRange) Size() int {
	if r.Max < r.Min {
		return 0
	}
	return r.Max - r.Min + 1
}

func (r BadgeRange) Format(n int) string {
	return FormatBadge(r.Prefix, n)
}

func (r BadgeRange) String() string {
	return fmt.Sprintf("%s[%d-%d]", r.Prefix, r.Min, r.Max)
}

type Tier struct {
	Level int
	Name  string
	Team  string
	Badge BadgeRange
}

var (
	academy     = BadgeRange{Prefix: "AC", Min: 100, Max: 199}
	patrol      = BadgeRange{Prefix: "PD", Min: 200, Max: 399}
	supervisors = BadgeRange{Prefix: "SV", Min: 400, Max: 499}
	command     = BadgeRange{Prefix: "CM", Min: 500, Max: 549}
	leadership  = BadgeRange{Prefix: "LD", Min: 1, Max: 20}
)

var ladder = []Tier{
	{Level: 1, Name: "Cadet", Team: "Academy", Badge: academy},
	{Level: 2, Name: "Officer I", Team: "Patrol", Badge: patrol},
	{Level: 3, Name: "Officer II", Team: "Patrol", Badge: patrol},
	{Level: 4, Name: "Officer III", Team: "Patrol", Badge: patrol},
	{Level: 5, Name: "Senior Officer", Team: "Patrol", Badge: patrol},
	{Level: 6, Name: "Corporal", Team: "Supervisors", Badge: supervisors},
	{Level: 7, Name: "Sergeant", Team: "Supervisors", Badge: supervisors},
	{Level: 8, Name: "Staff Sergeant", Team: "Supervisors", Badge: supervisors},
	{Level: 9, Name: "Lieutenant", Team: "Command", Badge: command},
	{Level: 10, Name: "Captain", Team: "Command", Badge: command},
	{Level: 11, Name: "Commander", Team: "Leadership", Badge: leadership},
	{Level: 12, Name: "Deputy Chief", Team: "Leadership", Badge: leadership},
	{Level: 13, Name: "Chief of Police", Team: "Leadership", Badge: leadership},
}

func Lookup(level int) (Tier, bool) {
	for _, t := range ladder {
		if t.Level == level {
			return t, true
		}
	}
	return Tier{}, false
}

func All() []Tier {
	out := make([]Tier, len(ladder))
	copy(out, ladder)
	return out
}

func FormatBadge(prefix string, n int) string {
	return fmt.Sprintf("%s-%03d", prefix, n)
}

// ParseBadge splits "PD-205" into ("PD", 205).
func ParseBadge(badge string) (string, int, bool) {
	idx := strings.LastIndexByte(badge, '-')
	if idx <= 0 || idx == len(badge)-1 {
		return "", 0, false
	}
	n, err := strconv.Atoi(badge[idx+1:])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return badge[:idx], n, true
}
