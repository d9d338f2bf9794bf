package leaderboard

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"loyalty-ledger/internal/model"
)

// Roster is the fixed, ordered list of placeholder names shown on the
// board. A Roster value is never modified; every helper returns a new one.
type Roster struct {
	names []string
}

// NewRoster trims names, drops blanks and keeps the first of any
// case-insensitive duplicates.
func NewRoster(names []string) Roster {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return Roster{names: out}
}

// Len returns the number of names.
func (r Roster) Len() int {
	return len(r.names)
}

// Names returns a copy of the names in order.
func (r Roster) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Contains reports whether name is present, ignoring case.
func (r Roster) Contains(name string) bool {
	return r.index(name) >= 0
}

func (r Roster) index(name string) int {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, n := range r.names {
		if strings.ToLower(n) == key {
			return i
		}
	}
	return -1
}

// With appends names not already present and reports the ones skipped
// as duplicates.
func (r Roster) With(names ...string) (Roster, []string) {
	var skipped []string
	for _, n := range names {
		if strings.TrimSpace(n) != "" && r.Contains(n) {
			skipped = append(skipped, n)
		}
	}
	merged := append(r.Names(), names...)
	return NewRoster(merged), skipped
}

// Without returns a roster with the given names removed, ignoring case.
func (r Roster) Without(names ...string) Roster {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}
	out := make([]string, 0, len(r.names))
	for _, n := range r.names {
		if _, ok := drop[strings.ToLower(n)]; !ok {
			out = append(out, n)
		}
	}
	return Roster{names: out}
}

// Renamed returns a roster with oldName replaced in place by newName.
func (r Roster) Renamed(oldName, newName string) (Roster, error) {
	i := r.index(oldName)
	if i < 0 {
		return r, fmt.Errorf("%w: %q is not on the roster", model.ErrInvalidArgument, oldName)
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return r, fmt.Errorf("%w: new name is empty", model.ErrInvalidArgument)
	}
	if j := r.index(newName); j >= 0 && j != i {
		return r, fmt.Errorf("%w: %q is already on the roster", model.ErrInvalidArgument, newName)
	}
	names := r.Names()
	names[i] = newName
	return Roster{names: names}, nil
}

type rosterFile struct {
	Names []string `yaml:"names"`
}

// LoadRosterFile reads a YAML document with a top-level "names" list.
// An empty path returns the built-in roster.
func LoadRosterFile(path string) (Roster, error) {
	if path == "" {
		return DefaultRoster(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("failed to read roster file: %w", err)
	}
	var f rosterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Roster{}, fmt.Errorf("failed to parse roster file %s: %w", path, err)
	}
	return NewRoster(f.Names), nil
}

// DefaultRoster returns the built-in staff roster.
func DefaultRoster() Roster {
	return NewRoster([]string{
		"Eri Kartono",
		"Hani Suryandari",
		"Andri Alamsyah",
		"Ayi Miraj Sidik Yatno",
		"Deni Kristanto",
		"Prajnavidya Adhivijna",
		"Muhammad Khoirul Wiro",
		"Iin Risanti",
		"Muhammad Rijal Yahya",
		"Muhammad Faris Al-Hakim",
		"Ulung Muchlis Nugroho",
		"Shofa Tasya Aulia",
		"Seny Triastuti",
		"Asti Apriani Suyatno",
		"Haris Ahsan Haq Jauhary",
		"Syahroni Binugroho",
		"Sinaring Randri Aditia",
		"Wildan Hari Pratama",
		"Dinda Nadya Salsabila",
		"Wildan Arif Rahmatulloh",
		"Toto Krisdayanto",
		"Annisatul Khoiryyah",
		"Tara Derifatoni",
		"Wahyu Bagus Septian",
		"Ahmad Andrian Syah",
		"Aulia Putri",
		"Hasri Handayani",
		"Abidzar Afif",
		"Hawary Ansorullah",
		"Dian Elsa Rosiana",
		"Kristy Karina Silalahi",
		"Muhammad Kamalurrofiq",
		"Bintang Armuneta",
		"Mohammad Bintang Lazuardi",
		"Layli Noor Ifadhoh",
		"Gega Putra Perdana",
		"Angga Saputra",
		"Deandra Marhaendra",
		"Eep Sugiarto",
		"Agus Sumarno",
		"Rinto Atmojo",
		"Andhika bagus sanjaya",
		"Eka Aprilia",
		"Ihsan Dzaky Saputra",
		"Danang Demestian",
		"Ziaul Haq Alviani",
		"Riski Andra Widiyawati",
		"Fredy Dwi Herdhiawan",
		"Nanang Setiawan",
		"Azzahra Putri Lintang Madaratri",
		"Moch Iqbal Maulana Azis",
		"Nur Azizah Putri Sabila",
		"Yudha Bayu Widiana",
	})
}
