package service

import (
	"context"
	"errors"
	"time"

	"outreach/internal/membership"
	"outreach/internal/program"
	"outreach/internal/program/store"
	"outreach/internal/user"
	dErrors "outreach/pkg/domain-errors"
	"outreach/pkg/platform/sentinel"
	"outreach/pkg/requestcontext"
)

// Join enrolls the authenticated caller into a program. The gates run in
// order and fail fast: active program, complete caller profile, consent
// registration when the caller asked for it on their behalf. Only then does
// the membership upsert run, so a failed gate leaves no partial record. The
// enriched membership is published to the event stream after the write.
func (s *Service) Join(ctx context.Context, programID string, req program.JoinRequest, app membership.AppInformation) (*membership.Membership, error) {
	start := time.Now()
	defer s.observeJoin(start)

	p, err := s.programs.FindOne(ctx, store.Filter{
		ID:        programID,
		Status:    program.StatusActive,
		IsDeleted: boolPtr(false),
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load program")
	}

	userID := requestcontext.UserID(ctx)
	token := requestcontext.UserToken(ctx)

	profile, err := s.callerProfile(ctx, token, userID)
	if err != nil {
		return nil, err
	}

	if req.ConsentShared {
		if err := s.registerConsent(ctx, token, userID, p); err != nil {
			return nil, err
		}
	}

	record, err := s.memberships.Upsert(ctx, programID, userID, membership.Update{
		UserRoleInformation: req.UserRoleInformation,
		UserProfile:         profile,
		AppName:             app.AppName,
		AppVersion:          app.AppVersion,
		IncResourcesStarted: req.IsResource,
		Now:                 requestcontext.Now(ctx),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save program membership")
	}
	s.incrementProgramsJoined()

	record.ProgramName = p.Name
	record.ProgramExternalID = p.ExternalID
	record.RequestForPIIConsent = p.RequestForPIIConsent
	if err := s.events.PublishMembership(ctx, record); err != nil {
		s.incrementPublishFailures()
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "failed to publish membership event")
	}

	s.logger.InfoContext(ctx, "program joined",
		"program_id", programID,
		"user_id", userID,
		"resources_started", record.NoOfResourcesStarted,
	)
	return record, nil
}

// callerProfile fetches the caller's profile and enforces completeness: a
// join requires both declared user types and locations.
func (s *Service) callerProfile(ctx context.Context, token, userID string) (*user.Profile, error) {
	result, err := s.users.Profile(ctx, token, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "failed to read user profile")
	}
	profile := result.Data.Response
	if !result.Success || len(profile.ProfileUserTypes) == 0 || len(profile.UserLocations) == 0 {
		return nil, ErrProgramJoinFailed
	}
	return &profile, nil
}

// registerConsent files the caller's consent record against the program's
// first root organisation. A program without one cannot name a consent
// consumer, so the join fails before any consent call goes out.
func (s *Service) registerConsent(ctx context.Context, token, userID string, p *program.Program) error {
	if len(p.RootOrganisations) == 0 {
		return ErrProgramJoinFailed
	}
	result, err := s.users.SetConsent(ctx, token, user.Consent{
		Status:     user.ConsentStatusRevoked,
		UserID:     userID,
		ConsumerID: p.RootOrganisations[0],
		ObjectID:   p.ID.Hex(),
		ObjectType: user.ObjectTypeProgram,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUpstream, "failed to register consent")
	}
	if !result.Success {
		return ErrProgramJoinFailed
	}
	return nil
}
