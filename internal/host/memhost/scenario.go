/*
Package memhost
File: scenario.go
Description:
    Scenario scripts drive a World from a YAML file: grids with seats and
    seat inventories, players placed in seats or on surfaces, and per-grid
    acceleration phases played back one tick at a time.

    Example:

        juice:
          - subtype_id: BlueJuice
            consumption_rate: 2
            toxicity_per_mitigated: 4
            toxicity_decay: 1
        grids:
          - name: Courier
            seats:
              - subtype_id: LargeBlockCockpit
                items:
                  - subtype_id: BlueJuice
                    amount: 3
            phases:
              - ticks: 120
              - ticks: 60
                linear: [70, 0, 0]
        players:
          - id: 1
            name: Pilot
            grid: Courier
            seat: 0
*/

package memhost

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/everforgeworks/deadly-accel/internal/host"
)

// DefaultItemTypeID is used for scenario items that omit a type.
const DefaultItemTypeID = "MyObjectBuilder_OxygenContainerObject"

// JuiceSpec is a juice definition as written in a scenario. The companion
// process registers these through the public registration hook.
type JuiceSpec struct {
	SubtypeID            string  `yaml:"subtype_id"`
	ConsumptionRate      float64 `yaml:"consumption_rate"`
	ToxicityPerMitigated float64 `yaml:"toxicity_per_mitigated"`
	ToxicityDecay        float64 `yaml:"toxicity_decay"`
	Ranking              int     `yaml:"ranking"`
}

type ItemSpec struct {
	TypeID    string  `yaml:"type_id"`
	SubtypeID string  `yaml:"subtype_id"`
	Amount    float64 `yaml:"amount"`
}

type SeatSpec struct {
	TypeID    string     `yaml:"type_id"`
	SubtypeID string     `yaml:"subtype_id"`
	Offset    [3]float64 `yaml:"offset"` // From the grid position
	Items     []ItemSpec `yaml:"items"`
}

// PhaseSpec holds an acceleration for a number of ticks.
type PhaseSpec struct {
	Ticks   int        `yaml:"ticks"`
	Linear  [3]float64 `yaml:"linear"`
	Angular [3]float64 `yaml:"angular"`
}

type GridSpec struct {
	Name         string      `yaml:"name"`
	Respawn      bool        `yaml:"respawn"`
	Position     [3]float64  `yaml:"position"`
	CenterOfMass *[3]float64 `yaml:"center_of_mass"` // Defaults to Position
	Floor        bool        `yaml:"floor"`          // Adds a walkable deck under Position
	Loop         bool        `yaml:"loop"`
	Seats        []SeatSpec  `yaml:"seats"`
	Phases       []PhaseSpec `yaml:"phases"`
}

type PlayerSpec struct {
	ID       int64      `yaml:"id"`
	Name     string     `yaml:"name"`
	Bot      bool       `yaml:"bot"`
	Grid     string     `yaml:"grid"`
	Seat     *int       `yaml:"seat"` // Index into the grid's seats; nil stands on the deck
	Position [3]float64 `yaml:"position"`
	Movement string     `yaml:"movement"`
}

// ScenarioFile is the YAML root.
type ScenarioFile struct {
	Juice   []JuiceSpec  `yaml:"juice"`
	Grids   []GridSpec   `yaml:"grids"`
	Players []PlayerSpec `yaml:"players"`
}

type scriptedGrid struct {
	grid   *Grid
	spec   GridSpec
	phase  int
	ticked int
}

// Scenario is a World plus the scripts that move it.
type Scenario struct {
	World *World
	Juice []JuiceSpec
	Grids map[string]*Grid

	scripts []*scriptedGrid
	tick    uint64
}

func vec(a [3]float64) host.Vec3 {
	return host.Vec3{X: a[0], Y: a[1], Z: a[2]}
}

// LoadScenario reads and builds a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f ScenarioFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	return BuildScenario(f)
}

// BuildScenario turns a parsed file into a live World.
func BuildScenario(f ScenarioFile) (*Scenario, error) {
	sc := &Scenario{
		World: New(),
		Juice: f.Juice,
		Grids: make(map[string]*Grid, len(f.Grids)),
	}
	seats := make(map[string][]*Seat, len(f.Grids))

	for _, gs := range f.Grids {
		if _, dup := sc.Grids[gs.Name]; dup {
			return nil, fmt.Errorf("duplicate grid %q", gs.Name)
		}
		pos := vec(gs.Position)
		g := sc.World.NewGrid(gs.Name, pos)
		g.Respawn = gs.Respawn
		if gs.CenterOfMass != nil {
			g.CoM = vec(*gs.CenterOfMass)
		}
		if gs.Floor {
			sc.World.AddSurface(g,
				pos.Add(host.Vec3{X: -10, Y: -1, Z: -10}),
				pos.Add(host.Vec3{X: 10, Y: 0, Z: 10}),
				FloorLayer)
		}
		for _, ss := range gs.Seats {
			typeID := ss.TypeID
			if typeID == "" {
				typeID = "MyObjectBuilder_Cockpit"
			}
			seat := sc.World.NewSeat(g, typeID, ss.SubtypeID, pos.Add(vec(ss.Offset)))
			for _, it := range ss.Items {
				itemType := it.TypeID
				if itemType == "" {
					itemType = DefaultItemTypeID
				}
				seat.Inv.Add(itemType, it.SubtypeID, it.Amount)
			}
			seats[gs.Name] = append(seats[gs.Name], seat)
		}
		sc.Grids[gs.Name] = g
		sc.scripts = append(sc.scripts, &scriptedGrid{grid: g, spec: gs})
	}

	for _, ps := range f.Players {
		ch := sc.World.NewCharacter(vec(ps.Position))
		if ps.Grid != "" {
			g, ok := sc.Grids[ps.Grid]
			if !ok {
				return nil, fmt.Errorf("player %d: unknown grid %q", ps.ID, ps.Grid)
			}
			if ps.Seat != nil {
				list := seats[ps.Grid]
				if *ps.Seat < 0 || *ps.Seat >= len(list) {
					return nil, fmt.Errorf("player %d: grid %q has no seat %d", ps.ID, ps.Grid, *ps.Seat)
				}
				ch.Sit(list[*ps.Seat])
			} else {
				ch.Pos = g.Pos
			}
		}
		if ps.Movement != "" {
			m, ok := host.ParseMovementState(ps.Movement)
			if !ok {
				return nil, fmt.Errorf("player %d: unknown movement %q", ps.ID, ps.Movement)
			}
			ch.Movement = m
		}
		p := sc.World.AddPlayer(ps.ID, ps.Name, ch)
		p.Bot = ps.Bot
	}

	sc.applyPhases()
	return sc, nil
}

// FloorLayer is the collision layer decks are registered on. It matches
// the layer the damage core probes.
const FloorLayer = 18

// Advance moves every scripted grid one tick forward.
func (sc *Scenario) Advance() {
	sc.tick++
	for _, s := range sc.scripts {
		if len(s.spec.Phases) == 0 {
			continue
		}
		s.ticked++
		if s.phase < len(s.spec.Phases) && s.ticked >= s.spec.Phases[s.phase].Ticks {
			s.ticked = 0
			s.phase++
			if s.phase >= len(s.spec.Phases) && s.spec.Loop {
				s.phase = 0
			}
		}
	}
	sc.applyPhases()
}

// Tick returns the number of Advance calls.
func (sc *Scenario) Tick() uint64 { return sc.tick }

// Done reports whether every non-looping script has finished.
func (sc *Scenario) Done() bool {
	for _, s := range sc.scripts {
		if s.spec.Loop && len(s.spec.Phases) > 0 {
			return false
		}
		if s.phase < len(s.spec.Phases) {
			return false
		}
	}
	return true
}

func (sc *Scenario) applyPhases() {
	for _, s := range sc.scripts {
		if s.phase < len(s.spec.Phases) {
			ph := s.spec.Phases[s.phase]
			s.grid.Linear = vec(ph.Linear)
			s.grid.Angular = vec(ph.Angular)
		} else {
			s.grid.Linear = host.Vec3{}
			s.grid.Angular = host.Vec3{}
		}
	}
}
