package factory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/gbone001/hall-frontline-pass/internal/model"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

// Test: Complete grant flow from request to registered link
func (s *IntegrationSuite) TestCompleteGrantFlow() {
	// Step 1: An operator grants VIP for an owner's player
	result, err := s.app.GrantService.Grant(s.ctx, model.GrantRequest{
		OperatorID: "op-1",
		OwnerID:    "owner-1",
		PlayerID:   "76561198000000001",
		Comment:    "event winner",
	})
	s.Require().NoError(err)
	s.Equal(model.TransportHTTP, result.TransportUsed)
	s.Equal(s.app.MockClock.Now().Add(24*time.Hour), result.ExpiresAtUTC)

	// Step 2: The transport received exactly one order for the player
	orders := s.app.HTTP.Orders()
	s.Require().Len(orders, 1)
	s.Equal(model.PlayerID("76561198000000001"), orders[0].PlayerID)
	s.Empty(s.app.Socket.Orders())

	// Step 3: The player id is now linked to the owner
	link, err := s.app.RegistryService.Lookup(s.ctx, "owner-1")
	s.Require().NoError(err)
	s.Require().NotNil(link)
	s.Equal(model.PlayerID("76561198000000001"), link.PlayerID)

	// Step 4: The grant spent one unit of the operator's weekly quota
	usage, err := s.app.Limiter.Usage(s.ctx, "op-1")
	s.Require().NoError(err)
	s.Equal(1, usage.Count)
	s.Equal(5, usage.Limit)

	// Step 5: Another owner cannot claim the same player id
	_, err = s.app.GrantService.Grant(s.ctx, model.GrantRequest{
		OperatorID: "op-2",
		OwnerID:    "owner-2",
		PlayerID:   "76561198000000001",
	})
	var dup *model.DuplicateIDError
	s.Require().ErrorAs(err, &dup)
	s.Equal(model.OwnerID("owner-1"), dup.ExistingOwnerID)

	// Step 6: The rejected attempt cost the second operator nothing
	usage, err = s.app.Limiter.Usage(s.ctx, "op-2")
	s.Require().NoError(err)
	s.Equal(0, usage.Count)
}

// Test: Socket transport serves the grant when the web API is down
func (s *IntegrationSuite) TestFallbackAndRecovery() {
	s.app.HTTP.Fail(model.ErrTransport)

	result, err := s.app.GrantService.Grant(s.ctx, model.GrantRequest{
		OperatorID: "op-1",
		PlayerID:   "76561198000000002",
	})
	s.Require().NoError(err)
	s.Equal(model.TransportSocket, result.TransportUsed)
	s.Require().Len(result.StatusLines, 2)

	// Once the web API recovers it serves requests again
	s.app.HTTP.Succeed("VIP added")

	result, err = s.app.GrantService.Grant(s.ctx, model.GrantRequest{
		OperatorID: "op-1",
		PlayerID:   "76561198000000003",
	})
	s.Require().NoError(err)
	s.Equal(model.TransportHTTP, result.TransportUsed)
}

// Test: All transports down surfaces every attempt to the caller
func (s *IntegrationSuite) TestAllTransportsDown() {
	s.app.HTTP.Fail(model.ErrAuth)
	s.app.Socket.Fail(model.ErrTimeout)

	_, err := s.app.GrantService.Grant(s.ctx, model.GrantRequest{
		OperatorID: "op-1",
		PlayerID:   "76561198000000004",
	})
	var ge *model.GrantError
	s.Require().ErrorAs(err, &ge)
	s.Require().Len(ge.Attempts, 2)
	s.Equal(model.TransportHTTP, ge.Attempts[0].Transport)
	s.Equal(model.TransportSocket, ge.Attempts[1].Transport)

	// The failed grant still spent quota
	usage, err := s.app.Limiter.Usage(s.ctx, "op-1")
	s.Require().NoError(err)
	s.Equal(1, usage.Count)
}

// Test: Weekly quota exhausts and rolls over at the reset anchor
func (s *IntegrationSuite) TestWeeklyQuotaRollover() {
	s.Require().NoError(s.app.Limiter.SetLimit(s.ctx, 2))

	grant := func(player string) error {
		_, err := s.app.GrantService.Grant(s.ctx, model.GrantRequest{
			OperatorID: "op-1",
			PlayerID:   model.PlayerID(player),
		})
		return err
	}

	s.Require().NoError(grant("76561198000000010"))
	s.Require().NoError(grant("76561198000000011"))

	err := grant("76561198000000012")
	var rl *model.RateLimitError
	s.Require().ErrorAs(err, &rl)
	s.Equal(2, rl.Limit)

	// Advance past the window boundary; the quota is fresh
	usage, err := s.app.Limiter.Usage(s.ctx, "op-1")
	s.Require().NoError(err)
	s.app.MockClock.Set(usage.ResetAt.Add(time.Minute))

	s.Require().NoError(grant("76561198000000012"))
}

// Test: Runtime adjustments survive a process restart
func (s *IntegrationSuite) TestAdjustmentsSurviveRestart() {
	s.Require().NoError(s.app.Limiter.SetLimit(s.ctx, 3))
	s.Require().NoError(s.app.Limiter.SetAnchor(s.ctx, time.Friday, 18, 30))
	s.Require().NoError(s.app.GrantService.SetDefaultDuration(s.ctx, 48))

	_, err := s.app.GrantService.Grant(s.ctx, model.GrantRequest{
		OperatorID: "op-1",
		OwnerID:    "owner-1",
		PlayerID:   "76561198000000020",
	})
	s.Require().NoError(err)

	s.Require().NoError(s.app.Restart(s.ctx))

	s.Equal(3, s.app.Limiter.Limit())
	weekday, hour, minute := s.app.Limiter.Anchor()
	s.Equal(time.Friday, weekday)
	s.Equal(18, hour)
	s.Equal(30, minute)
	s.Equal(48.0, s.app.GrantService.DefaultDuration(s.ctx))

	// Links and spent quota are durable too
	link, err := s.app.RegistryService.Lookup(s.ctx, "owner-1")
	s.Require().NoError(err)
	s.Require().NotNil(link)
	s.Equal(model.PlayerID("76561198000000020"), link.PlayerID)

	usage, err := s.app.Limiter.Usage(s.ctx, "op-1")
	s.Require().NoError(err)
	s.Equal(1, usage.Count)
	s.Equal(3, usage.Limit)

	// The restored default shapes the next grant's expiry
	result, err := s.app.GrantService.Grant(s.ctx, model.GrantRequest{
		OperatorID: "op-1",
		PlayerID:   "76561198000000021",
	})
	s.Require().NoError(err)
	s.Equal(s.app.MockClock.Now().Add(48*time.Hour), result.ExpiresAtUTC)
}

// Test: Same owner regranting their own player is idempotent on the link
func (s *IntegrationSuite) TestSameOwnerRegrant() {
	for i := 0; i < 2; i++ {
		_, err := s.app.GrantService.Grant(s.ctx, model.GrantRequest{
			OperatorID: "op-1",
			OwnerID:    "owner-1",
			PlayerID:   "76561198000000030",
		})
		s.Require().NoError(err)
	}

	count, err := s.app.RegistryService.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
	s.Len(s.app.HTTP.Orders(), 2)
}
