package chemfake

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/turtacn/chemindex/internal/domain/structure"
)

// AtomSpec describes one atom of a fixture molecule.
type AtomSpec struct {
	Symbol      string   `json:"symbol"`
	Pseudo      bool     `json:"pseudo,omitempty"`
	RSite       bool     `json:"rsite,omitempty"`
	Constraints []string `json:"constraints,omitempty"`
}

// Fragment is one connected component of a fixture molecule.
type Fragment []AtomSpec

// A returns a plain atom.
func A(symbol string) AtomSpec { return AtomSpec{Symbol: symbol} }

// Q returns a query atom carrying substituent constraints.
func Q(symbol string) AtomSpec {
	return AtomSpec{Symbol: symbol, Constraints: []string{
		structure.ConstraintSubstituents, structure.ConstraintSubstituentsAsDrawn,
	}}
}

// Pseudo returns a pseudo-atom with the given label.
func Pseudo(label string) AtomSpec { return AtomSpec{Symbol: label, Pseudo: true} }

// RSite returns an R-group attachment site.
func RSite() AtomSpec { return AtomSpec{Symbol: "R#", RSite: true} }

// Frag builds a fragment of plain atoms from symbols.
func Frag(symbols ...string) Fragment {
	f := make(Fragment, len(symbols))
	for i, s := range symbols {
		f[i] = A(s)
	}
	return f
}

type atomData struct {
	AtomSpec
	Fragment int `json:"fragment"`
}

type molData struct {
	Name       string     `json:"name"`
	Query      bool       `json:"query,omitempty"`
	Aromatic   bool       `json:"aromatic,omitempty"`
	BadValence bool       `json:"bad_valence,omitempty"`
	Atoms      []atomData `json:"atoms"`
}

type reactionData struct {
	Name      string     `json:"name"`
	Query     bool       `json:"query,omitempty"`
	Reactants []*molData `json:"reactants"`
	Products  []*molData `json:"products"`
}

type payload struct {
	Molecule *molData      `json:"molecule,omitempty"`
	Reaction *reactionData `json:"reaction,omitempty"`
}

func newMolData(name string, query bool, fragments []Fragment) *molData {
	m := &molData{Name: name, Query: query, Atoms: []atomData{}}
	for i, f := range fragments {
		for _, a := range f {
			m.Atoms = append(m.Atoms, atomData{AtomSpec: a, Fragment: i})
		}
	}
	return m
}

func (m *molData) copy() *molData {
	c := *m
	c.Atoms = make([]atomData, len(m.Atoms))
	for i, a := range m.Atoms {
		c.Atoms[i] = a
		c.Atoms[i].Constraints = append([]string(nil), a.Constraints...)
	}
	return &c
}

func (r *reactionData) copy() *reactionData {
	c := &reactionData{Name: r.Name, Query: r.Query}
	for _, m := range r.Reactants {
		c.Reactants = append(c.Reactants, m.copy())
	}
	for _, m := range r.Products {
		c.Products = append(c.Products, m.copy())
	}
	return c
}

// fragments groups atoms by fragment id in order of first appearance.
func (m *molData) fragments() [][]atomData {
	order := []int{}
	groups := map[int][]atomData{}
	for _, a := range m.Atoms {
		if _, ok := groups[a.Fragment]; !ok {
			order = append(order, a.Fragment)
		}
		groups[a.Fragment] = append(groups[a.Fragment], a)
	}
	out := make([][]atomData, 0, len(order))
	for _, id := range order {
		out = append(out, groups[id])
	}
	return out
}

func fragmentKey(atoms []atomData) string {
	symbols := make([]string, len(atoms))
	for i, a := range atoms {
		symbols[i] = a.Symbol
	}
	sort.Strings(symbols)
	return strings.Join(symbols, ",")
}

func (m *molData) key() string {
	var keys []string
	for _, f := range m.fragments() {
		keys = append(keys, fragmentKey(f))
	}
	sort.Strings(keys)
	return strings.Join(keys, ".")
}

func (r *reactionData) key() string {
	side := func(ms []*molData) string {
		keys := make([]string, len(ms))
		for i, m := range ms {
			keys[i] = m.key()
		}
		sort.Strings(keys)
		return strings.Join(keys, "+")
	}
	return side(r.Reactants) + ">>" + side(r.Products)
}

func hashKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64() >> 1)
}

func fingerprintBits(kind structure.FingerprintKind, mols []*molData) string {
	set := map[int]struct{}{}
	for _, m := range mols {
		for _, a := range m.Atoms {
			if a.Pseudo || a.RSite {
				continue
			}
			set[bit(string(kind)+":"+a.Symbol, 0)] = struct{}{}
		}
		for _, f := range m.fragments() {
			set[bit(string(kind)+"|"+fragmentKey(f), 256)] = struct{}{}
		}
	}
	bits := make([]int, 0, len(set))
	for b := range set {
		bits = append(bits, b)
	}
	sort.Ints(bits)
	parts := make([]string, len(bits))
	for i, b := range bits {
		parts[i] = fmt.Sprint(b)
	}
	return strings.Join(parts, " ")
}

func bit(key string, offset int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return offset + int(h.Sum32()%256)
}

const rxnHeader = "$RXN chemfake\n"

func encodeRxn(r *reactionData) (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return rxnHeader + string(raw), nil
}

func decodeRxn(text string) (*reactionData, error) {
	if !strings.HasPrefix(text, rxnHeader) {
		return nil, fmt.Errorf("chemfake: not an rxnfile")
	}
	var r reactionData
	if err := json.Unmarshal([]byte(strings.TrimPrefix(text, rxnHeader)), &r); err != nil {
		return nil, fmt.Errorf("chemfake: bad rxnfile: %w", err)
	}
	return &r, nil
}

// parseMolecule reads the fixture notation: fragments separated by ".",
// atoms separated by spaces, "$label" for pseudo-atoms and "R#" for R-sites.
func parseMolecule(text string) (*molData, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("chemfake: empty molecule text")
	}
	var fragments []Fragment
	for _, part := range strings.Split(text, ".") {
		var f Fragment
		for _, tok := range strings.Fields(part) {
			switch {
			case tok == "R#":
				f = append(f, RSite())
			case strings.HasPrefix(tok, "$") && len(tok) > 1:
				f = append(f, Pseudo(tok[1:]))
			default:
				f = append(f, A(tok))
			}
		}
		if len(f) == 0 {
			return nil, fmt.Errorf("chemfake: empty fragment in %q", text)
		}
		fragments = append(fragments, f)
	}
	return newMolData("", false, fragments), nil
}

// parseSMILES reads a line of SMILES. "." separates fragments. An atom is an
// organic-subset symbol (Cl and Br take two letters), a lowercase aromatic
// symbol, a bracketed symbol or "*" for an R-site. Bonds, ring closures,
// branches and stereo marks carry no atoms and are skipped.
func parseSMILES(text string) (*molData, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("chemfake: empty smiles")
	}
	var (
		fragments []Fragment
		f         Fragment
	)
	closeFragment := func() error {
		if len(f) == 0 {
			return fmt.Errorf("chemfake: empty fragment in %q", text)
		}
		fragments = append(fragments, f)
		f = nil
		return nil
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '.':
			if err := closeFragment(); err != nil {
				return nil, err
			}
		case c == '[':
			end := strings.IndexByte(text[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("chemfake: unclosed bracket atom in %q", text)
			}
			sym := bracketSymbol(text[i+1 : i+end])
			if sym == "" {
				return nil, fmt.Errorf("chemfake: bad bracket atom in %q", text)
			}
			if sym == "*" {
				f = append(f, RSite())
			} else {
				f = append(f, A(sym))
			}
			i += end
		case c == '*':
			f = append(f, RSite())
		case c == 'C' && i+1 < len(text) && text[i+1] == 'l',
			c == 'B' && i+1 < len(text) && text[i+1] == 'r':
			f = append(f, A(text[i:i+2]))
			i++
		case c >= 'A' && c <= 'Z':
			f = append(f, A(string(c)))
		case strings.IndexByte("bcnops", c) >= 0:
			f = append(f, A(strings.ToUpper(string(c))))
		case strings.IndexByte("-=#$:/\\()%@+0123456789", c) >= 0:
		default:
			return nil, fmt.Errorf("chemfake: unexpected %q in smiles %q", c, text)
		}
	}
	if err := closeFragment(); err != nil {
		return nil, err
	}
	return newMolData("", false, fragments), nil
}

// bracketSymbol extracts the element from a bracket atom body such as
// "13CH4+" or "nH".
func bracketSymbol(body string) string {
	body = strings.TrimLeft(body, "0123456789")
	if strings.HasPrefix(body, "*") {
		return "*"
	}
	if body == "" {
		return ""
	}
	c := body[0]
	switch {
	case c >= 'A' && c <= 'Z':
		if len(body) > 1 && body[1] >= 'a' && body[1] <= 'z' {
			return body[:2]
		}
		return body[:1]
	case c >= 'a' && c <= 'z':
		return strings.ToUpper(body[:1])
	}
	return ""
}

// parseReactionSMILES reads "reactants>agents>products". Each "." separated
// entry of a side is one molecule. Agents are dropped.
func parseReactionSMILES(text string) (*reactionData, error) {
	parts := strings.Split(strings.TrimSpace(text), ">")
	if len(parts) != 3 {
		return nil, fmt.Errorf("chemfake: reaction smiles needs reactants>agents>products, got %q", text)
	}
	side := func(part string) ([]*molData, error) {
		var mols []*molData
		if strings.TrimSpace(part) == "" {
			return mols, nil
		}
		for _, entry := range strings.Split(part, ".") {
			m, err := parseSMILES(entry)
			if err != nil {
				return nil, err
			}
			mols = append(mols, m)
		}
		return mols, nil
	}
	reactants, err := side(parts[0])
	if err != nil {
		return nil, err
	}
	products, err := side(parts[2])
	if err != nil {
		return nil, err
	}
	if len(reactants) == 0 && len(products) == 0 {
		return nil, fmt.Errorf("chemfake: empty reaction smiles")
	}
	return &reactionData{Reactants: reactants, Products: products}, nil
}

//Personal.AI order the ending
