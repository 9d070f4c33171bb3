package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := "test-secret"
	token, err := GenerateToken(secret, Claims{
		UserID:     "u1",
		TenantID:   "t1",
		EmployeeID: "emp-1",
		Role:       RoleManager,
	}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != "u1" || claims.TenantID != "t1" || claims.EmployeeID != "emp-1" || claims.Role != RoleManager {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret-a", Claims{UserID: "u1"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ParseToken("secret-b", token); err == nil {
		t.Fatal("token signed with a different secret must not parse")
	}
}

func TestTokenExpired(t *testing.T) {
	token, err := GenerateToken("secret", Claims{UserID: "u1"}, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ParseToken("secret", token); err == nil {
		t.Fatal("expired token must not parse")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := CheckPassword(hash, "s3cret!"); err != nil {
		t.Fatalf("CheckPassword: %v", err)
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("wrong password must not verify")
	}
}

func TestStaticPerms(t *testing.T) {
	perms := StaticPerms{}
	ok, err := perms.HasPermission(nil, RoleEmployee, PermLeaveApprove)
	if err != nil {
		t.Fatalf("HasPermission: %v", err)
	}
	if ok {
		t.Fatal("employee must not hold leave.approve")
	}
	ok, _ = perms.HasPermission(nil, RoleManager, PermLeaveApprove)
	if !ok {
		t.Fatal("manager must hold leave.approve")
	}
	ok, _ = perms.HasPermission(nil, RoleHR, PermBalanceAdjust)
	if !ok {
		t.Fatal("hr must hold balance.adjust")
	}
}
