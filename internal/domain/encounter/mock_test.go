package encounter

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/emr/emr/internal/domain/charge"
	"github.com/emr/emr/internal/domain/patient"
	"github.com/emr/emr/internal/domain/ward"
)

// -- Mock Repository --

type mockRepo struct {
	encounters map[uuid.UUID]*Encounter
	lines      map[uuid.UUID]*EncounterCharge
	diagnoses  []*Diagnosis
	history    []*StatusChange
	linked     map[uuid.UUID]bool
	failCharge string
	locks      int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		encounters: make(map[uuid.UUID]*Encounter),
		lines:      make(map[uuid.UUID]*EncounterCharge),
		linked:     make(map[uuid.UUID]bool),
	}
}

type repoState struct {
	encounters map[uuid.UUID]Encounter
	lines      map[uuid.UUID]EncounterCharge
	diagnoses  int
	history    int
}

func (m *mockRepo) snapshot() repoState {
	s := repoState{
		encounters: make(map[uuid.UUID]Encounter, len(m.encounters)),
		lines:      make(map[uuid.UUID]EncounterCharge, len(m.lines)),
		diagnoses:  len(m.diagnoses),
		history:    len(m.history),
	}
	for id, e := range m.encounters {
		s.encounters[id] = *e
	}
	for id, l := range m.lines {
		s.lines[id] = *l
	}
	return s
}

func (m *mockRepo) restore(s repoState) {
	m.encounters = make(map[uuid.UUID]*Encounter, len(s.encounters))
	for id, e := range s.encounters {
		e := e
		m.encounters[id] = &e
	}
	m.lines = make(map[uuid.UUID]*EncounterCharge, len(s.lines))
	for id, l := range s.lines {
		l := l
		m.lines[id] = &l
	}
	m.diagnoses = m.diagnoses[:s.diagnoses]
	m.history = m.history[:s.history]
}

func (m *mockRepo) LockPatient(_ context.Context, _ uuid.UUID) error {
	m.locks++
	return nil
}

func (m *mockRepo) Create(_ context.Context, e *Encounter) error {
	for _, other := range m.encounters {
		if other.PatientID == e.PatientID && other.EncounterDate == e.EncounterDate && other.Status != StatusCancelled {
			return ErrDuplicateToday
		}
	}
	e.ID = uuid.New()
	e.CreatedAt = e.StartedAt
	e.UpdatedAt = e.StartedAt
	stored := *e
	stored.Charges = nil
	m.encounters[e.ID] = &stored
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Encounter, error) {
	e, ok := m.encounters[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *e
	return &out, nil
}

func (m *mockRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return m.GetByID(ctx, id)
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status Status, endedAt *time.Time) error {
	e, ok := m.encounters[id]
	if !ok {
		return ErrNotFound
	}
	e.Status = status
	e.EndedAt = endedAt
	return nil
}

func (m *mockRepo) UpdateDetails(_ context.Context, e *Encounter) error {
	stored, ok := m.encounters[e.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Clinic, stored.ChiefComplaint, stored.Notes = e.Clinic, e.ChiefComplaint, e.Notes
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.encounters[id]; !ok {
		return ErrNotFound
	}
	delete(m.encounters, id)
	for lid, l := range m.lines {
		if l.EncounterID == id {
			delete(m.lines, lid)
		}
	}
	return nil
}

func (m *mockRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]*Encounter, int, error) {
	var out []*Encounter
	for _, e := range m.encounters {
		if f.PatientID != nil && e.PatientID != *f.PatientID {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.From != "" && e.EncounterDate < f.From {
			continue
		}
		if f.To != "" && e.EncounterDate > f.To {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if offset < len(out) {
		out = out[offset:]
	} else {
		out = nil
	}
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *mockRepo) ExistsOnDate(_ context.Context, patientID uuid.UUID, date string) (bool, error) {
	for _, e := range m.encounters {
		if e.PatientID == patientID && e.EncounterDate == date && e.Status != StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) OpenInpatient(_ context.Context, patientID uuid.UUID) (*Encounter, error) {
	for _, e := range m.encounters {
		if e.PatientID == patientID && e.Type == TypeInpatient && !e.Status.Closed() {
			out := *e
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) AddCharge(_ context.Context, c *EncounterCharge) error {
	if m.failCharge != "" && c.Name == m.failCharge {
		return context.DeadlineExceeded
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	stored := *c
	m.lines[c.ID] = &stored
	return nil
}

func (m *mockRepo) GetCharge(_ context.Context, encounterID, id uuid.UUID) (*EncounterCharge, error) {
	l, ok := m.lines[id]
	if !ok || l.EncounterID != encounterID {
		return nil, ErrChargeNotFound
	}
	out := *l
	return &out, nil
}

func (m *mockRepo) RemoveCharge(ctx context.Context, encounterID, id uuid.UUID) error {
	l, err := m.GetCharge(ctx, encounterID, id)
	if err != nil {
		return err
	}
	if l.Paid {
		return ErrChargePaid
	}
	if m.linked[id] {
		return ErrChargeLinked
	}
	delete(m.lines, id)
	return nil
}

func (m *mockRepo) ListCharges(_ context.Context, encounterID uuid.UUID) ([]*EncounterCharge, error) {
	var out []*EncounterCharge
	for _, l := range m.lines {
		if l.EncounterID == encounterID {
			c := *l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockRepo) MarkPaid(_ context.Context, encounterID uuid.UUID, by string, at time.Time) (int, error) {
	n := 0
	for _, l := range m.lines {
		if l.EncounterID == encounterID && !l.Paid {
			l.Paid = true
			l.PaidBy = by
			t := at
			l.PaidAt = &t
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) AddDiagnosis(_ context.Context, d *Diagnosis) error {
	d.ID = uuid.New()
	m.diagnoses = append(m.diagnoses, d)
	return nil
}

func (m *mockRepo) ListDiagnoses(_ context.Context, encounterID uuid.UUID) ([]*Diagnosis, error) {
	var out []*Diagnosis
	for _, d := range m.diagnoses {
		if d.EncounterID == encounterID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockRepo) AddStatusChange(_ context.Context, sc *StatusChange) error {
	sc.ID = uuid.New()
	sc.ChangedAt = time.Now()
	m.history = append(m.history, sc)
	return nil
}

func (m *mockRepo) ListStatusHistory(_ context.Context, encounterID uuid.UUID) ([]*StatusChange, error) {
	var out []*StatusChange
	for _, sc := range m.history {
		if sc.EncounterID == encounterID {
			out = append(out, sc)
		}
	}
	return out, nil
}

// -- Transactor that rolls the mock back on error --

type rollbackTx struct {
	repo  *mockRepo
	beds  *mockBeds
	depth int
}

func (t *rollbackTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if t.depth > 0 {
		return fn(ctx)
	}
	repoSnap := t.repo.snapshot()
	bedSnap := t.beds.snapshot()
	t.depth++
	err := fn(ctx)
	t.depth--
	if err != nil {
		t.repo.restore(repoSnap)
		t.beds.restore(bedSnap)
	}
	return err
}

// -- Collaborators --

type mockPatients struct {
	patients map[uuid.UUID]*patient.Patient
}

func (m *mockPatients) GetPatient(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

type mockCatalog struct {
	charges map[uuid.UUID]*charge.Charge
}

func (m *mockCatalog) ActiveCharges(_ context.Context, ids []uuid.UUID) ([]*charge.Charge, error) {
	var out []*charge.Charge
	for _, id := range ids {
		c, ok := m.charges[id]
		if !ok {
			return nil, charge.ErrNotFound
		}
		if !c.Active {
			return nil, charge.ErrInactive
		}
		out = append(out, c)
	}
	return out, nil
}

type mockBeds struct {
	wards    map[uuid.UUID]*ward.Ward
	occupied map[uuid.UUID]bool
}

func (m *mockBeds) snapshot() map[uuid.UUID]bool {
	out := make(map[uuid.UUID]bool, len(m.occupied))
	for k, v := range m.occupied {
		out[k] = v
	}
	return out
}

func (m *mockBeds) restore(s map[uuid.UUID]bool) {
	m.occupied = s
}

func (m *mockBeds) GetWard(_ context.Context, id uuid.UUID) (*ward.Ward, error) {
	w, ok := m.wards[id]
	if !ok {
		return nil, ward.ErrNotFound
	}
	return w, nil
}

func (m *mockBeds) OccupyBed(_ context.Context, wardID, bedID uuid.UUID) error {
	w, ok := m.wards[wardID]
	if !ok {
		return ward.ErrNotFound
	}
	inWard := false
	for _, b := range w.Beds {
		if b.ID == bedID {
			inWard = true
		}
	}
	if !inWard {
		return ward.ErrBedNotInWard
	}
	if m.occupied[bedID] {
		return ward.ErrBedOccupied
	}
	m.occupied[bedID] = true
	return nil
}

func (m *mockBeds) ReleaseBed(_ context.Context, bedID uuid.UUID) error {
	m.occupied[bedID] = false
	return nil
}
