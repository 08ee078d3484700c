package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/common"
)

// fakePortfolioRepo keeps sections and assets in memory.
type fakePortfolioRepo struct {
	mu       sync.Mutex
	sections map[uuid.UUID]*common.Section // by section id
	owners   map[uuid.UUID]uuid.UUID       // section id -> user id
	order    []uuid.UUID
	assets   map[uuid.UUID]*common.Asset
	failSave error
}

func newFakeRepo() *fakePortfolioRepo {
	return &fakePortfolioRepo{
		sections: map[uuid.UUID]*common.Section{},
		owners:   map[uuid.UUID]uuid.UUID{},
		assets:   map[uuid.UUID]*common.Asset{},
	}
}

func (f *fakePortfolioRepo) addSection(userID uuid.UUID, name string, target int64) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.sections[id] = &common.Section{ID: id, UserID: userID, Name: name, TargetPercentage: decimal.NewFromInt(target)}
	f.owners[id] = userID
	f.order = append(f.order, id)
	return id
}

func (f *fakePortfolioRepo) addAsset(sectionID uuid.UUID, ticker string) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.assets[id] = &common.Asset{ID: id, SectionID: sectionID, Name: ticker, Ticker: ticker, Action: common.ActionBuy}
	return id
}

func (f *fakePortfolioRepo) ListSections(_ context.Context, userID uuid.UUID) ([]common.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []common.Section
	for _, id := range f.order {
		s, ok := f.sections[id]
		if !ok || f.owners[id] != userID {
			continue
		}
		section := *s
		section.Assets = []common.Asset{}
		for _, a := range f.assets {
			if a.SectionID == id {
				section.Assets = append(section.Assets, *a)
			}
		}
		out = append(out, section)
	}
	return out, nil
}

func (f *fakePortfolioRepo) ReplaceSections(_ context.Context, userID uuid.UUID, sections []common.Section) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave != nil {
		return f.failSave
	}
	incoming := map[uuid.UUID]bool{}
	for _, s := range sections {
		incoming[s.ID] = true
	}
	for id, owner := range f.owners {
		if owner == userID && !incoming[id] {
			delete(f.sections, id)
			delete(f.owners, id)
			for aid, a := range f.assets {
				if a.SectionID == id {
					delete(f.assets, aid)
				}
			}
		}
	}
	for _, s := range sections {
		if existing, ok := f.sections[s.ID]; ok && f.owners[s.ID] == userID {
			existing.Name = s.Name
			existing.TargetPercentage = s.TargetPercentage
			continue
		}
		id := uuid.New()
		f.sections[id] = &common.Section{ID: id, UserID: userID, Name: s.Name, TargetPercentage: s.TargetPercentage}
		f.owners[id] = userID
		f.order = append(f.order, id)
	}
	return nil
}

func (f *fakePortfolioRepo) SectionOwnedBy(_ context.Context, sectionID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	owner, ok := f.owners[sectionID]
	return ok && owner == userID, nil
}

func (f *fakePortfolioRepo) SectionAssetIDs(_ context.Context, sectionID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for id, a := range f.assets {
		if a.SectionID == sectionID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakePortfolioRepo) TickerExists(_ context.Context, sectionID uuid.UUID, ticker string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assets {
		if a.SectionID == sectionID && strings.EqualFold(a.Ticker, ticker) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePortfolioRepo) CreateAsset(_ context.Context, asset *common.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	asset.ID = uuid.New()
	cp := *asset
	f.assets[asset.ID] = &cp
	return nil
}

func (f *fakePortfolioRepo) GetAsset(_ context.Context, assetID, userID uuid.UUID) (*common.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assets[assetID]
	if !ok || f.owners[a.SectionID] != userID {
		return nil, common.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakePortfolioRepo) UpdateAsset(_ context.Context, asset *common.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *asset
	f.assets[asset.ID] = &cp
	return nil
}

func (f *fakePortfolioRepo) UpdateAssets(_ context.Context, assets []common.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range assets {
		stored := f.assets[a.ID]
		stored.PriceUnit = a.PriceUnit
		stored.Quantity = a.Quantity
		stored.TargetPercentage = a.TargetPercentage
		stored.Action = a.Action
	}
	return nil
}

func (f *fakePortfolioRepo) DeleteAsset(_ context.Context, assetID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.assets, assetID)
	return nil
}

func newTestService(repo *fakePortfolioRepo) *PortfolioService {
	return NewPortfolioService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestSaveSections_ReplacesSet(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	userID := uuid.New()

	keep := repo.addSection(userID, "Ações", 50)
	drop := repo.addSection(userID, "Cripto", 10)
	repo.addAsset(drop, "BTC")

	saved, err := svc.SaveSections(context.Background(), userID, []SectionInput{
		{ID: &keep, Name: " Ações BR ", TargetPercentage: dec(60)},
		{Name: "FIIs", TargetPercentage: dec(40)},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, keep, saved[0].ID)
	assert.Equal(t, "Ações BR", saved[0].Name)
	assert.Equal(t, "FIIs", saved[1].Name)
	assert.Empty(t, repo.assets)
}

func TestSaveSections_Validation(t *testing.T) {
	svc := newTestService(newFakeRepo())

	tests := []struct {
		name   string
		inputs []SectionInput
		msg    string
	}{
		{"too many", []SectionInput{
			{Name: "A1", TargetPercentage: dec(10)}, {Name: "A2", TargetPercentage: dec(10)},
			{Name: "A3", TargetPercentage: dec(10)}, {Name: "A4", TargetPercentage: dec(10)},
			{Name: "A5", TargetPercentage: dec(10)},
		}, "at most 4"},
		{"short name", []SectionInput{{Name: "A", TargetPercentage: dec(10)}}, "2 to 50"},
		{"long name", []SectionInput{{Name: strings.Repeat("x", 51), TargetPercentage: dec(10)}}, "2 to 50"},
		{"negative target", []SectionInput{{Name: "Ações", TargetPercentage: dec(-1)}}, "between 0 and 100"},
		{"sum above 100", []SectionInput{
			{Name: "Ações", TargetPercentage: dec(70)},
			{Name: "FIIs", TargetPercentage: decimal.RequireFromString("30.01")},
		}, "100.01%"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SaveSections(context.Background(), uuid.New(), tc.inputs)
			require.ErrorIs(t, err, common.ErrBadRequest)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestSaveSections_RepoError(t *testing.T) {
	repo := newFakeRepo()
	repo.failSave = errors.New("db down")
	svc := newTestService(repo)

	_, err := svc.SaveSections(context.Background(), uuid.New(), []SectionInput{{Name: "Ações", TargetPercentage: dec(10)}})
	assert.EqualError(t, err, "db down")
}

func TestCreateAsset(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	userID := uuid.New()
	sectionID := repo.addSection(userID, "Ações", 100)

	asset, err := svc.CreateAsset(context.Background(), userID, CreateAssetInput{
		SectionID:        sectionID,
		Name:             "Petrobras",
		Ticker:           " PETR4 ",
		Type:             "Ações",
		TargetPercentage: dec(20),
		PriceUnit:        dec(35),
		Quantity:         dec(100),
	})
	require.NoError(t, err)
	assert.Equal(t, "PETR4", asset.Ticker)
	assert.Equal(t, common.ActionBuy, asset.Action)
	assert.Nil(t, asset.Description)

	_, err = svc.CreateAsset(context.Background(), userID, CreateAssetInput{
		SectionID: sectionID, Name: "Petrobras PN", Ticker: "petr4", Type: "Ações",
	})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestCreateAsset_Rejects(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	userID := uuid.New()
	sectionID := repo.addSection(userID, "Ações", 100)

	valid := CreateAssetInput{SectionID: sectionID, Name: "Vale", Ticker: "VALE3", Type: "Ações"}

	negative := valid
	negative.Quantity = dec(-1)
	_, err := svc.CreateAsset(context.Background(), userID, negative)
	assert.ErrorIs(t, err, common.ErrBadRequest)

	badAction := valid
	badAction.Action = "short"
	_, err = svc.CreateAsset(context.Background(), userID, badAction)
	assert.ErrorIs(t, err, common.ErrBadRequest)

	overTarget := valid
	overTarget.TargetPercentage = dec(101)
	_, err = svc.CreateAsset(context.Background(), userID, overTarget)
	assert.ErrorIs(t, err, common.ErrBadRequest)

	_, err = svc.CreateAsset(context.Background(), uuid.New(), valid)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateAssetsBulk(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	userID := uuid.New()
	sectionID := repo.addSection(userID, "Ações", 100)
	other := repo.addSection(userID, "FIIs", 0)
	a1 := repo.addAsset(sectionID, "PETR4")
	foreign := repo.addAsset(other, "HGLG11")

	err := svc.UpdateAssetsBulk(context.Background(), userID, sectionID, []AssetValues{
		{ID: a1, PriceUnit: dec(30), Quantity: dec(10), TargetPercentage: dec(100), Action: common.ActionHold},
	})
	require.NoError(t, err)
	assert.Equal(t, common.ActionHold, repo.assets[a1].Action)
	assert.True(t, repo.assets[a1].PriceUnit.Equal(dec(30)))

	err = svc.UpdateAssetsBulk(context.Background(), userID, sectionID, []AssetValues{
		{ID: a1, Action: common.ActionBuy},
		{ID: foreign, Action: common.ActionBuy},
	})
	require.ErrorIs(t, err, common.ErrBadRequest)
	assert.Equal(t, common.ActionHold, repo.assets[a1].Action)

	err = svc.UpdateAssetsBulk(context.Background(), userID, sectionID, nil)
	assert.ErrorIs(t, err, common.ErrBadRequest)

	err = svc.UpdateAssetsBulk(context.Background(), uuid.New(), sectionID, []AssetValues{{ID: a1, Action: common.ActionBuy}})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateAssetValues_PartialAndClamped(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	userID := uuid.New()
	sectionID := repo.addSection(userID, "Ações", 100)
	assetID := repo.addAsset(sectionID, "ITSA4")
	repo.assets[assetID].Quantity = dec(7)

	price := dec(12)
	negative := dec(-3)
	target := dec(150)
	bogus := common.Action("short")

	asset, err := svc.UpdateAssetValues(context.Background(), userID, assetID, AssetPatch{
		PriceUnit:        &price,
		Quantity:         &negative,
		TargetPercentage: &target,
		Action:           &bogus,
	})
	require.NoError(t, err)
	assert.True(t, asset.PriceUnit.Equal(dec(12)))
	assert.True(t, asset.Quantity.Equal(dec(7)))
	assert.True(t, asset.TargetPercentage.Equal(dec(100)))
	assert.Equal(t, common.ActionBuy, asset.Action)

	_, err = svc.UpdateAssetValues(context.Background(), uuid.New(), assetID, AssetPatch{})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteAsset(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	userID := uuid.New()
	assetID := repo.addAsset(repo.addSection(userID, "Ações", 100), "BBAS3")

	assert.ErrorIs(t, svc.DeleteAsset(context.Background(), uuid.New(), assetID), common.ErrNotFound)
	require.NoError(t, svc.DeleteAsset(context.Background(), userID, assetID))
	assert.Empty(t, repo.assets)
}

func TestGetReport(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	userID := uuid.New()
	sectionID := repo.addSection(userID, "Ações", 100)
	assetID := repo.addAsset(sectionID, "PETR4")
	repo.assets[assetID].PriceUnit = dec(10)
	repo.assets[assetID].Quantity = dec(5)

	r, err := svc.GetReport(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "50", r.PortfolioTotal.String())
	require.Len(t, r.Sections, 1)
	assert.Equal(t, "100", r.Sections[0].ActualPct.String())
}
