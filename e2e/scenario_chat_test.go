package e2e

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"chatline/protocol"
)

type testChatLifecycleSuite struct {
	BaseChatSuite
}

func TestChatLifecycleSuite(t *testing.T) {
	suite.Run(t, &testChatLifecycleSuite{})
}

func (s *testChatLifecycleSuite) TestFullChatLifecycle() {
	var admin, alice *chatClient

	// --- STEP 0: ADMIN BOOTSTRAP ---
	// The account registered under the configured admin login gets the
	// admin role; everyone after that is a regular user.
	s.Run("Step 0: Register the admin account", func() {
		admin = s.Dial()
		s.Send(admin, "/register "+s.Config.AdminLogin+" sup3rsecret Boss")
		s.Expect(admin, protocol.MsgRegistered)
	})

	// --- STEP 1: REGULAR USER JOINS ---
	s.Run("Step 1: Register a regular user and see the join notice", func() {
		alice = s.Dial()
		s.Send(alice, "/register alice secret1 Alice")
		s.Expect(alice, protocol.MsgRegistered)
		s.Expect(admin, "new user connected - Alice")
	})

	// --- STEP 2: BROADCAST WITH MODERATION ---
	s.Run("Step 2: Chat line reaches everyone, forbidden words masked", func() {
		s.Send(alice, "some script-kiddie broke the build")
		s.Expect(admin, "Alice: some ************* broke the build")
		s.Expect(alice, "Alice: some ************* broke the build")
	})

	// --- STEP 3: PRIVATE MESSAGE ---
	s.Run("Step 3: Whisper is delivered only to its target", func() {
		s.Send(admin, "/w Alice ship it")
		s.Expect(alice, "private message from Boss: ship it")
		s.Expect(admin, "private message to Alice: ship it")
	})

	// --- STEP 4: AUTHORIZATION BOUNDARY ---
	s.Run("Step 4: Regular user cannot use admin commands", func() {
		s.Send(alice, "/kick Boss")
		s.Expect(alice, protocol.MsgNoRights)
	})

	// --- STEP 5: KICK ---
	s.Run("Step 5: Admin kicks the user, who receives the marker", func() {
		s.Send(admin, "/kick Alice")
		s.Expect(alice, "you have been kicked")
		s.Require().Equal(protocol.MarkerKicked, s.Expect(alice, protocol.MarkerKicked))
		s.ExpectClosed(alice)
		s.Expect(admin, "Boss kicked Alice")
		s.Require().Eventually(func() bool { return !s.Registry.IsBusy("Alice") },
			5*time.Second, 20*time.Millisecond)
	})

	// --- STEP 6: KICKED USER COMES BACK ---
	s.Run("Step 6: A kicked user may authenticate again", func() {
		alice = s.Dial()
		s.Send(alice, "/auth alice secret1")
		s.Expect(alice, protocol.Welcome("Alice"))
	})

	// --- STEP 7: TEMPORARY BAN ---
	s.Run("Step 7: Ban disconnects the user and blocks re-auth", func() {
		s.Send(admin, "/ban Alice 1")
		s.Require().Equal(protocol.MarkerTempBanned+" 1",
			s.Expect(alice, protocol.MarkerTempBanned))
		s.ExpectClosed(alice)

		rejected := s.Dial()
		s.Send(rejected, "/auth alice secret1")
		s.Expect(rejected, protocol.MsgCurrentlyBanned)
		s.CloseClient(rejected)
	})

	// --- STEP 8: UNBAN ---
	s.Run("Step 8: Unban restores access", func() {
		s.Send(admin, "/unban Alice")
		s.Expect(admin, "unbanned successfully")

		alice = s.Dial()
		s.Send(alice, "/auth alice secret1")
		s.Expect(alice, protocol.Welcome("Alice"))
	})

	// --- STEP 9: ROSTER ---
	s.Run("Step 9: Active list shows both users in join order", func() {
		s.Send(admin, "/activelist")
		roster := s.Expect(admin, "Users are online now:")
		s.Require().Contains(roster, "Boss")
		s.Require().Contains(roster, "Alice")
	})

	// --- STEP 10: ADMIN SHUTDOWN ---
	s.Run("Step 10: Shutdown notifies every client and closes the server", func() {
		s.Send(admin, "/shutdown")
		s.Expect(alice, "is shutting down")
		s.Require().Equal(protocol.MarkerShutdown, s.Expect(alice, protocol.MarkerShutdown))
		s.Require().Equal(protocol.MarkerShutdown, s.Expect(admin, protocol.MarkerShutdown))
		s.ExpectClosed(alice)
		s.ExpectClosed(admin)
	})
}
