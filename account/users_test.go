package account_test

import (
	"fixflow/account"
	"fixflow/bizerror"
	"fixflow/persistence"
	"fixflow/session"
	"fixflow/testinfra"
	"testing"

	. "github.com/onsi/gomega"
)

func setup(t *testing.T) *testinfra.TestDatabase {
	db := testinfra.StartSqliteTestDatabase(t, "fixflow")
	Expect(db.DS.GormDB().AutoMigrate(&account.User{}).Error).To(BeNil())
	return db
}

func TestCreateUser(t *testing.T) {
	RegisterTestingT(t)
	admin := testinfra.BuildAdminSession("boss")

	t.Run("admin should create a user with a hashed secret", func(t *testing.T) {
		setup(t)

		info, err := account.CreateUser(&account.UserCreation{
			Name: "dev1", Secret: "s3cret", Role: session.RoleDeveloper}, admin)
		Expect(err).To(BeNil())
		Expect(info.Name).To(Equal("dev1"))
		Expect(info.Role).To(Equal(session.RoleDeveloper))

		stored := account.User{}
		Expect(persistence.ActiveDataSourceManager.GormDB().
			Where("id = ?", info.ID).First(&stored).Error).To(BeNil())
		Expect(stored.Secret).ToNot(Equal("s3cret"))
		Expect(stored.Secret).ToNot(BeEmpty())
	})

	t.Run("non-admin should be forbidden", func(t *testing.T) {
		setup(t)

		_, err := account.CreateUser(&account.UserCreation{
			Name: "dev1", Secret: "s3cret", Role: session.RoleDeveloper},
			testinfra.BuildDeveloperSession("dev0"))
		Expect(err).To(Equal(bizerror.ErrForbidden))
	})

	t.Run("duplicate name should conflict", func(t *testing.T) {
		setup(t)

		_, err := account.CreateUser(&account.UserCreation{
			Name: "dev1", Secret: "s3cret", Role: session.RoleDeveloper}, admin)
		Expect(err).To(BeNil())
		_, err = account.CreateUser(&account.UserCreation{
			Name: "dev1", Secret: "other", Role: session.RoleUser}, admin)
		Expect(err).To(Equal(bizerror.ErrConflict))
	})

	t.Run("unknown role should be rejected", func(t *testing.T) {
		setup(t)

		_, err := account.CreateUser(&account.UserCreation{
			Name: "dev1", Secret: "s3cret", Role: session.Role("SuperUser")}, admin)
		Expect(err).To(BeAssignableToTypeOf(&bizerror.ErrBadParam{}))
	})
}

func TestAuthenticateUser(t *testing.T) {
	RegisterTestingT(t)
	admin := testinfra.BuildAdminSession("boss")

	t.Run("should return the identity on a matching secret", func(t *testing.T) {
		setup(t)

		info, err := account.CreateUser(&account.UserCreation{
			Name: "ann", Secret: "s3cret", Role: session.RoleUser}, admin)
		Expect(err).To(BeNil())

		identity, err := account.AuthenticateUser("ann", "s3cret")
		Expect(err).To(BeNil())
		Expect(identity.ID).To(Equal(info.ID))
		Expect(identity.Name).To(Equal("ann"))
		Expect(identity.Role).To(Equal(session.RoleUser))
	})

	t.Run("unknown name and wrong secret should fail the same way", func(t *testing.T) {
		setup(t)

		_, err := account.CreateUser(&account.UserCreation{
			Name: "ann", Secret: "s3cret", Role: session.RoleUser}, admin)
		Expect(err).To(BeNil())

		_, errUnknown := account.AuthenticateUser("nobody", "s3cret")
		_, errWrong := account.AuthenticateUser("ann", "wrong")
		Expect(errUnknown).To(Equal(bizerror.ErrInvalidCredentials))
		Expect(errWrong).To(Equal(bizerror.ErrInvalidCredentials))
	})
}

func TestUpdateUser(t *testing.T) {
	RegisterTestingT(t)
	admin := testinfra.BuildAdminSession("boss")

	t.Run("should rehash the secret only when one is provided", func(t *testing.T) {
		setup(t)

		info, err := account.CreateUser(&account.UserCreation{
			Name: "ann", Secret: "s3cret", Role: session.RoleUser}, admin)
		Expect(err).To(BeNil())

		Expect(account.UpdateUser(info.ID, &account.UserUpdating{
			Name: "ann", Role: session.RoleDeveloper}, admin)).To(BeNil())
		_, err = account.AuthenticateUser("ann", "s3cret")
		Expect(err).To(BeNil())

		Expect(account.UpdateUser(info.ID, &account.UserUpdating{
			Name: "ann", Role: session.RoleDeveloper, Secret: "newpass"}, admin)).To(BeNil())
		_, err = account.AuthenticateUser("ann", "s3cret")
		Expect(err).To(Equal(bizerror.ErrInvalidCredentials))
		identity, err := account.AuthenticateUser("ann", "newpass")
		Expect(err).To(BeNil())
		Expect(identity.Role).To(Equal(session.RoleDeveloper))
	})

	t.Run("a user should update themselves but nobody else", func(t *testing.T) {
		setup(t)

		info, err := account.CreateUser(&account.UserCreation{
			Name: "ann", Secret: "s3cret", Role: session.RoleUser}, admin)
		Expect(err).To(BeNil())

		self := testinfra.BuildSession(info.ID, "ann", session.RoleUser)
		Expect(account.UpdateUser(info.ID, &account.UserUpdating{
			Name: "ann-renamed", Role: session.RoleUser}, self)).To(BeNil())

		other := testinfra.BuildSession(info.ID+1, "bob", session.RoleUser)
		Expect(account.UpdateUser(info.ID, &account.UserUpdating{
			Name: "hijacked", Role: session.RoleUser}, other)).To(Equal(bizerror.ErrForbidden))
	})
}

func TestDeleteUser(t *testing.T) {
	RegisterTestingT(t)
	admin := testinfra.BuildAdminSession("boss")

	t.Run("admin should delete a user, absent id is not found", func(t *testing.T) {
		setup(t)

		info, err := account.CreateUser(&account.UserCreation{
			Name: "ann", Secret: "s3cret", Role: session.RoleUser}, admin)
		Expect(err).To(BeNil())

		Expect(account.DeleteUser(info.ID, admin)).To(BeNil())
		Expect(account.DeleteUser(info.ID, admin)).To(Equal(bizerror.ErrNotFound))

		users, err := account.QueryUsers(admin)
		Expect(err).To(BeNil())
		Expect(users).To(BeEmpty())
	})

	t.Run("non-admin should be forbidden", func(t *testing.T) {
		setup(t)

		Expect(account.DeleteUser(123, testinfra.BuildUserSession("ann"))).
			To(Equal(bizerror.ErrForbidden))
	})
}
