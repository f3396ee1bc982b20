package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/v2/bson"

	"outreach/internal/location"
	"outreach/internal/membership"
	"outreach/internal/program"
	"outreach/internal/program/store"
	"outreach/internal/role"
	"outreach/internal/user"
	dErrors "outreach/pkg/domain-errors"
	"outreach/pkg/requestcontext"
)

const (
	testUserID = "8f14e45f-ceea-467f-a0f7-7c9b3c4d5e6f"
	districtID = "95bf5bb3-8ecb-4dc1-9c33-92b39b56fb51"
	stateID    = "3f9d2b1c-5f6a-4f08-9f4f-2f3a1f0b6c7d"
)

// fakeDirectory answers searches from canned data keyed by id/code/type.
type fakeDirectory struct {
	byID   map[string]location.Location
	byCode map[string]location.Location
	types  map[string]string
}

func (f *fakeDirectory) Search(_ context.Context, req location.SearchRequest) (location.SearchResult, error) {
	var data []location.Location
	for _, id := range req.IDs {
		if loc, ok := f.byID[id]; ok && (req.Type == "" || loc.Type == req.Type) {
			data = append(data, loc)
		}
	}
	for _, code := range req.Codes {
		if loc, ok := f.byCode[code]; ok && (req.Type == "" || loc.Type == req.Type) {
			data = append(data, loc)
		}
	}
	if len(req.IDs) == 0 && len(req.Codes) == 0 && req.Type != "" {
		if canonical, ok := f.types[req.Type]; ok {
			data = append(data, location.Location{Type: canonical})
		}
	}
	if len(data) == 0 {
		return location.SearchResult{Success: false}, nil
	}
	return location.SearchResult{Success: true, Data: data}, nil
}

// fakeUserClient serves canned profiles and records consent submissions.
type fakeUserClient struct {
	profiles     map[string]user.Profile
	profileCalls int
	consents     []user.Consent
	consentFails bool
}

func (f *fakeUserClient) Profile(_ context.Context, _, userID string) (user.ProfileResult, error) {
	f.profileCalls++
	profile, ok := f.profiles[userID]
	if !ok {
		return user.ProfileResult{Success: false}, nil
	}
	result := user.ProfileResult{Success: true}
	result.Data.Response = profile
	return result, nil
}

func (f *fakeUserClient) SetConsent(_ context.Context, _ string, consent user.Consent) (user.ConsentResult, error) {
	if f.consentFails {
		return user.ConsentResult{}, errors.New("consent service down")
	}
	f.consents = append(f.consents, consent)
	return user.ConsentResult{Success: true}, nil
}

// fakePublisher records published memberships and can simulate a broker
// outage.
type fakePublisher struct {
	published []*membership.Membership
	failWith  error
}

func (f *fakePublisher) PublishMembership(_ context.Context, record *membership.Membership) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.published = append(f.published, record)
	return nil
}

type ServiceSuite struct {
	suite.Suite
	svc         *Service
	programs    *store.MemoryStore
	memberships *membership.MemoryStore
	users       *fakeUserClient
	publisher   *fakePublisher
	ctx         context.Context
}

func (s *ServiceSuite) SetupTest() {
	directory := &fakeDirectory{
		byID: map[string]location.Location{
			districtID: {ID: districtID, Code: "DIST01", Type: "district"},
			stateID:    {ID: stateID, Code: "ST01", Type: "state"},
		},
		byCode: map[string]location.Location{
			"DIST01": {ID: districtID, Code: "DIST01", Type: "district"},
			"DIST02": {ID: "7e7a67a1-9e2f-4d0e-8fd9-6a3f44c2a111", Code: "DIST02", Type: "district"},
		},
		types: map[string]string{
			"district": "district",
			"District": "district",
			"state":    "state",
		},
	}
	catalog := role.NewMemoryCatalog(
		role.Role{ID: "role-hm", Code: "HM"},
		role.Role{ID: "role-deo", Code: "DEO"},
	)
	s.users = &fakeUserClient{
		profiles: map[string]user.Profile{
			testUserID: {
				ID:               testUserID,
				ProfileUserTypes: []user.UserType{{Type: "administrator"}},
				UserLocations:    []user.UserLocation{{ID: districtID, Type: "district"}},
				RootOrgID:        "org-1",
			},
		},
	}
	s.publisher = &fakePublisher{}
	s.programs = store.NewMemoryStore()
	s.memberships = membership.NewMemoryStore()
	s.svc = New(
		s.programs,
		s.memberships,
		location.NewResolver(directory),
		role.NewAdapter(catalog),
		s.users,
		s.publisher,
	)
	s.ctx = requestcontext.WithUserID(context.Background(), testUserID)
	s.ctx = requestcontext.WithUserToken(s.ctx, "caller-token")
	s.ctx = requestcontext.WithTime(s.ctx, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) createProgram(mutate func(*program.Program)) string {
	p := &program.Program{
		ExternalID: "EXT-1",
		Name:       "Clean water",
		Status:     program.StatusActive,
		CreatedAt:  time.Now(),
	}
	if mutate != nil {
		mutate(p)
	}
	id, err := s.programs.Create(context.Background(), p)
	s.Require().NoError(err)
	return id
}

func (s *ServiceSuite) TestCreateSetsOwnershipAndDefaults() {
	created, err := s.svc.Create(s.ctx, program.CreateRequest{
		ExternalID: "EXT-NEW",
		Name:       "  School safety  ",
	})
	s.Require().NoError(err)
	s.Equal("School safety", created.Name)
	s.Equal(testUserID, created.CreatedBy)
	s.Equal(testUserID, created.Owner)
	s.Equal(program.StatusActive, created.Status)
	s.False(created.IsDeleted)
	s.Nil(created.Scope)
}

func (s *ServiceSuite) TestCreateRejectsMissingName() {
	_, err := s.svc.Create(s.ctx, program.CreateRequest{ExternalID: "EXT"})
	s.Require().True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestCreateWithScopeResolvesReferences() {
	created, err := s.svc.Create(s.ctx, program.CreateRequest{
		ExternalID: "EXT-NEW",
		Name:       "School safety",
		Scope: &program.ScopeRequest{
			EntityType: "district",
			Entities:   []string{districtID, "DIST02"},
			Roles:      &program.RolesRequest{Codes: []string{"HM"}},
		},
	})
	s.Require().NoError(err)
	s.Require().NotNil(created.Scope)
	s.Equal("district", created.Scope.EntityType)
	s.ElementsMatch([]string{districtID, "7e7a67a1-9e2f-4d0e-8fd9-6a3f44c2a111"}, created.Scope.Entities)
	s.Equal([]role.Role{{ID: "role-hm", Code: "HM"}}, created.Scope.Roles)
}

func (s *ServiceSuite) TestSetScopeAllowsEntityTypeOnly() {
	id := s.createProgram(nil)

	err := s.svc.SetScope(s.ctx, id, program.ScopeRequest{EntityType: "state"})
	s.Require().NoError(err)

	p, err := s.svc.Details(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(p.Scope)
	s.Equal("state", p.Scope.EntityType)
	s.Empty(p.Scope.Entities)
	s.Empty(p.Scope.Roles)
}

func (s *ServiceSuite) TestSetScopeReplacesWholesale() {
	id := s.createProgram(func(p *program.Program) {
		p.Scope = &program.Scope{
			EntityType: "district",
			Entities:   []string{districtID},
			Roles:      role.Sentinel(),
		}
	})

	err := s.svc.SetScope(s.ctx, id, program.ScopeRequest{
		EntityType: "state",
		Entities:   []string{stateID},
	})
	s.Require().NoError(err)

	p, err := s.svc.Details(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("state", p.Scope.EntityType)
	s.Equal([]string{stateID}, p.Scope.Entities)
	s.Empty(p.Scope.Roles, "roles absent from the request are absent from the new scope")
}

func (s *ServiceSuite) TestSetScopeStoresCanonicalEntityType() {
	id := s.createProgram(nil)

	err := s.svc.SetScope(s.ctx, id, program.ScopeRequest{EntityType: "District"})
	s.Require().NoError(err)

	p, err := s.svc.Details(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("district", p.Scope.EntityType)
}

func (s *ServiceSuite) TestSetScopeRejectsUnknownEntityType() {
	id := s.createProgram(nil)

	err := s.svc.SetScope(s.ctx, id, program.ScopeRequest{EntityType: "galaxy"})
	s.Require().ErrorIs(err, location.ErrEntityTypeNotFound)

	p, err := s.svc.Details(s.ctx, id)
	s.Require().NoError(err)
	s.Nil(p.Scope, "a failed type lookup leaves the scope untouched")
}

func (s *ServiceSuite) TestSetScopeRejectsPrivatePrograms() {
	id := s.createProgram(func(p *program.Program) { p.IsAPrivateProgram = true })

	err := s.svc.SetScope(s.ctx, id, program.ScopeRequest{EntityType: "district"})
	s.Require().ErrorIs(err, ErrProgramNotFound)
}

func (s *ServiceSuite) TestAddRolesEvictsSentinel() {
	id := s.createProgram(func(p *program.Program) {
		p.Scope = &program.Scope{EntityType: "district", Roles: role.Sentinel()}
	})

	err := s.svc.AddRolesInScope(s.ctx, id, program.RolesRequest{Codes: []string{"HM", "DEO"}})
	s.Require().NoError(err)

	p, err := s.svc.Details(s.ctx, id)
	s.Require().NoError(err)
	s.Equal([]role.Role{{ID: "role-hm", Code: "HM"}, {ID: "role-deo", Code: "DEO"}}, p.Scope.Roles)
}

func (s *ServiceSuite) TestAddRolesSentinelReplacesSet() {
	id := s.createProgram(func(p *program.Program) {
		p.Scope = &program.Scope{
			EntityType: "district",
			Roles:      []role.Role{{ID: "role-hm", Code: "HM"}},
		}
	})

	err := s.svc.AddRolesInScope(s.ctx, id, program.RolesRequest{All: true})
	s.Require().NoError(err)

	p, err := s.svc.Details(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(role.Sentinel(), p.Scope.Roles)
}

func (s *ServiceSuite) TestAddThenRemoveRolesRoundTrips() {
	id := s.createProgram(func(p *program.Program) {
		p.Scope = &program.Scope{
			EntityType: "district",
			Roles:      []role.Role{{ID: "role-deo", Code: "DEO"}},
		}
	})

	s.Require().NoError(s.svc.AddRolesInScope(s.ctx, id, program.RolesRequest{Codes: []string{"HM"}}))
	s.Require().NoError(s.svc.RemoveRolesInScope(s.ctx, id, program.RolesRequest{Codes: []string{"HM"}}))

	p, err := s.svc.Details(s.ctx, id)
	s.Require().NoError(err)
	s.Equal([]role.Role{{ID: "role-deo", Code: "DEO"}}, p.Scope.Roles)
}

func (s *ServiceSuite) TestAddRolesUnknownCode() {
	id := s.createProgram(func(p *program.Program) {
		p.Scope = &program.Scope{EntityType: "district"}
	})

	err := s.svc.AddRolesInScope(s.ctx, id, program.RolesRequest{Codes: []string{"NOPE"}})
	s.Require().ErrorIs(err, role.ErrInvalidRoleCode)
}

func (s *ServiceSuite) TestScopeMutationsRequireExistingScope() {
	id := s.createProgram(nil)

	err := s.svc.AddRolesInScope(s.ctx, id, program.RolesRequest{Codes: []string{"HM"}})
	s.Require().ErrorIs(err, ErrProgramNotFound)

	err = s.svc.AddEntitiesInScope(s.ctx, id, []string{districtID})
	s.Require().ErrorIs(err, ErrProgramNotFound)
}

func (s *ServiceSuite) TestAddEntitiesUsesStoredGranularity() {
	id := s.createProgram(func(p *program.Program) {
		p.Scope = &program.Scope{EntityType: "district", Entities: []string{districtID}}
	})

	// stateID resolves only at "state" granularity; the stored scope is
	// "district", so only DIST02 lands.
	err := s.svc.AddEntitiesInScope(s.ctx, id, []string{"DIST02", stateID})
	s.Require().NoError(err)

	p, err := s.svc.Details(s.ctx, id)
	s.Require().NoError(err)
	s.ElementsMatch([]string{districtID, "7e7a67a1-9e2f-4d0e-8fd9-6a3f44c2a111"}, p.Scope.Entities)
}

func (s *ServiceSuite) TestRemoveEntitiesMatchesVerbatim() {
	id := s.createProgram(func(p *program.Program) {
		p.Scope = &program.Scope{EntityType: "district", Entities: []string{districtID}}
	})

	// Removal does not resolve: the code form does not match the stored ID.
	s.Require().NoError(s.svc.RemoveEntitiesInScope(s.ctx, id, []string{"DIST01"}))
	p, err := s.svc.Details(s.ctx, id)
	s.Require().NoError(err)
	s.Equal([]string{districtID}, p.Scope.Entities)

	// Nothing to remove is fine while the stored set is non-empty.
	s.Require().NoError(s.svc.RemoveEntitiesInScope(s.ctx, id, nil))

	s.Require().NoError(s.svc.RemoveEntitiesInScope(s.ctx, id, []string{districtID}))
	p, err = s.svc.Details(s.ctx, id)
	s.Require().NoError(err)
	s.Empty(p.Scope.Entities)

	err = s.svc.RemoveEntitiesInScope(s.ctx, id, []string{districtID})
	s.Require().ErrorIs(err, location.ErrEntitiesNotFound, "an emptied scope has no entities to remove")
}

func (s *ServiceSuite) TestBuildTargetingFilter() {
	f, err := BuildTargetingFilter(program.TargetingRequest{
		Locations: map[string]string{"district": districtID, "state": stateID},
		Role:      "HM, DEO,HM",
	})
	s.Require().NoError(err)
	s.Equal([]string{"ALL", "HM", "DEO"}, f.RoleCodes)
	s.ElementsMatch([]string{districtID, stateID}, f.EntityIDs)
	s.Equal(program.StatusActive, f.Status)
	s.Require().NotNil(f.IsDeleted)
	s.False(*f.IsDeleted)
}

func (s *ServiceSuite) TestBuildTargetingFilterNeedsLocations() {
	_, err := BuildTargetingFilter(program.TargetingRequest{Role: "HM"})
	s.Require().ErrorIs(err, ErrNoLocationID)
}

func (s *ServiceSuite) TestBuildTargetingFilterCoercesIdentifiers() {
	hex := bson.NewObjectID().Hex()
	f, err := BuildTargetingFilter(program.TargetingRequest{
		Locations: map[string]string{"district": districtID},
		Filter:    map[string]any{"_id": hex, "components": "survey"},
	})
	s.Require().NoError(err)
	oid, ok := f.Extra["_id"].(bson.ObjectID)
	s.Require().True(ok)
	s.Equal(hex, oid.Hex())
	s.Equal("survey", f.Extra["components"])
}

func (s *ServiceSuite) TestForUserRoleAndLocationMatchesScope() {
	matched := s.createProgram(func(p *program.Program) {
		p.Scope = &program.Scope{
			EntityType: "district",
			Entities:   []string{districtID},
			Roles:      []role.Role{{ID: "role-hm", Code: "HM"}},
		}
	})
	s.createProgram(func(p *program.Program) {
		p.ExternalID = "EXT-OTHER"
		p.Scope = &program.Scope{
			EntityType: "district",
			Entities:   []string{"elsewhere"},
			Roles:      []role.Role{{ID: "role-hm", Code: "HM"}},
		}
	})

	page, err := s.svc.ForUserRoleAndLocation(s.ctx, program.TargetingRequest{
		Locations: map[string]string{"district": districtID},
		Role:      "HM,TEACHER",
	}, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(page.Data, 1)
	s.Equal(matched, page.Data[0].ID.Hex())

	// Wrong role sees nothing at the same location.
	page, err = s.svc.ForUserRoleAndLocation(s.ctx, program.TargetingRequest{
		Locations: map[string]string{"district": districtID},
		Role:      "DEO",
	}, 1, 10)
	s.Require().NoError(err)
	s.Empty(page.Data)
}

func (s *ServiceSuite) TestForUserRoleAndLocationSentinelAdmitsAnyRole() {
	s.createProgram(func(p *program.Program) {
		p.Scope = &program.Scope{
			EntityType: "district",
			Entities:   []string{districtID},
			Roles:      role.Sentinel(),
		}
	})

	page, err := s.svc.ForUserRoleAndLocation(s.ctx, program.TargetingRequest{
		Locations: map[string]string{"district": districtID},
		Role:      "SOME_ROLE_NOBODY_SCOPED",
	}, 1, 10)
	s.Require().NoError(err)
	s.Len(page.Data, 1)
}

func (s *ServiceSuite) TestUserPrivatePrograms() {
	mine := s.createProgram(func(p *program.Program) {
		p.CreatedBy = testUserID
		p.IsAPrivateProgram = true
	})
	s.createProgram(func(p *program.Program) {
		p.CreatedBy = "someone-else"
		p.IsAPrivateProgram = true
	})
	s.createProgram(func(p *program.Program) {
		p.CreatedBy = testUserID
	})

	programs, err := s.svc.UserPrivatePrograms(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(programs, 1)
	s.Equal(mine, programs[0].ID.Hex())
}

func (s *ServiceSuite) TestJoinCreatesAndPublishes() {
	id := s.createProgram(func(p *program.Program) {
		p.Name = "Clean water"
		p.RequestForPIIConsent = true
		p.RootOrganisations = []string{"org-root"}
	})

	record, err := s.svc.Join(s.ctx, id, program.JoinRequest{
		UserRoleInformation: map[string]string{"roles": "HM"},
		ConsentShared:       true,
	}, membership.AppInformation{AppName: "outreach-app", AppVersion: "2.1.0"})
	s.Require().NoError(err)

	s.Equal(id, record.ProgramID)
	s.Equal(testUserID, record.UserID)
	s.Equal("Clean water", record.ProgramName)
	s.Equal("EXT-1", record.ProgramExternalID)
	s.True(record.RequestForPIIConsent)
	s.Equal("outreach-app", record.AppInformation.AppName)

	s.Require().Len(s.publisher.published, 1)
	s.Require().Len(s.users.consents, 1)
	consent := s.users.consents[0]
	s.Equal(user.ConsentStatusRevoked, consent.Status)
	s.Equal("org-root", consent.ConsumerID)
	s.Equal(id, consent.ObjectID)
	s.Equal(user.ObjectTypeProgram, consent.ObjectType)
}

func (s *ServiceSuite) TestJoinIsIdempotent() {
	id := s.createProgram(nil)

	first, err := s.svc.Join(s.ctx, id, program.JoinRequest{}, membership.AppInformation{})
	s.Require().NoError(err)
	second, err := s.svc.Join(s.ctx, id, program.JoinRequest{}, membership.AppInformation{})
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.Equal(1, s.memberships.Count())
}

func (s *ServiceSuite) TestJoinCountsResourceStarts() {
	id := s.createProgram(nil)

	for i := 0; i < 3; i++ {
		_, err := s.svc.Join(s.ctx, id, program.JoinRequest{IsResource: true}, membership.AppInformation{})
		s.Require().NoError(err)
	}
	record, err := s.svc.Join(s.ctx, id, program.JoinRequest{}, membership.AppInformation{})
	s.Require().NoError(err)
	s.Equal(3, record.NoOfResourcesStarted, "plain joins never reset the counter")
}

func (s *ServiceSuite) TestJoinRejectsInactiveProgram() {
	id := s.createProgram(func(p *program.Program) { p.Status = program.StatusInactive })

	_, err := s.svc.Join(s.ctx, id, program.JoinRequest{}, membership.AppInformation{})
	s.Require().ErrorIs(err, ErrProgramNotFound)
	s.Zero(s.users.profileCalls, "failed gate stops the flow before the profile read")
	s.Zero(s.memberships.Count())
	s.Empty(s.publisher.published)
}

func (s *ServiceSuite) TestJoinRequiresCompleteProfile() {
	id := s.createProgram(nil)
	s.users.profiles[testUserID] = user.Profile{
		ID:            testUserID,
		UserLocations: []user.UserLocation{{ID: districtID, Type: "district"}},
	}

	_, err := s.svc.Join(s.ctx, id, program.JoinRequest{}, membership.AppInformation{})
	s.Require().ErrorIs(err, ErrProgramJoinFailed)
	s.Zero(s.memberships.Count(), "no partial record on a failed gate")
}

func (s *ServiceSuite) TestJoinConsentFailureLeavesNoRecord() {
	id := s.createProgram(func(p *program.Program) {
		p.RequestForPIIConsent = true
		p.RootOrganisations = []string{"org-root"}
	})
	s.users.consentFails = true

	_, err := s.svc.Join(s.ctx, id, program.JoinRequest{ConsentShared: true}, membership.AppInformation{})
	s.Require().True(dErrors.HasCode(err, dErrors.CodeUpstream))
	s.Zero(s.memberships.Count())
	s.Empty(s.publisher.published)
}

func (s *ServiceSuite) TestJoinConsentRequiresRootOrganisation() {
	id := s.createProgram(func(p *program.Program) { p.RequestForPIIConsent = true })

	_, err := s.svc.Join(s.ctx, id, program.JoinRequest{ConsentShared: true}, membership.AppInformation{})
	s.Require().ErrorIs(err, ErrProgramJoinFailed)
	s.Empty(s.users.consents, "no consent call goes out without a consumer")
	s.Zero(s.memberships.Count())
	s.Empty(s.publisher.published)
}

func (s *ServiceSuite) TestJoinConsentFollowsCallerRequest() {
	// The caller's on-behalf request alone triggers the consent call, even
	// when the program never asked for PII consent.
	id := s.createProgram(func(p *program.Program) {
		p.RootOrganisations = []string{"org-root"}
	})

	_, err := s.svc.Join(s.ctx, id, program.JoinRequest{ConsentShared: true}, membership.AppInformation{})
	s.Require().NoError(err)
	s.Require().Len(s.users.consents, 1)
	s.Equal("org-root", s.users.consents[0].ConsumerID)
}

func (s *ServiceSuite) TestJoinSkipsConsentWhenNotShared() {
	id := s.createProgram(func(p *program.Program) { p.RequestForPIIConsent = true })

	_, err := s.svc.Join(s.ctx, id, program.JoinRequest{}, membership.AppInformation{})
	s.Require().NoError(err)
	s.Empty(s.users.consents)
}

func (s *ServiceSuite) TestJoinSurfacesPublishFailure() {
	id := s.createProgram(nil)
	s.publisher.failWith = errors.New("broker down")

	_, err := s.svc.Join(s.ctx, id, program.JoinRequest{}, membership.AppInformation{})
	s.Require().True(dErrors.HasCode(err, dErrors.CodeUpstream))
	// The membership write already happened; only the event is lost.
	s.Equal(1, s.memberships.Count())
}
