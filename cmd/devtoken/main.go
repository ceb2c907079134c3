// Command devtoken mints an access token for local testing.  Accounts are
// managed elsewhere; the API only verifies tokens signed with JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/iliyamo/restaurant-table-reservation/internal/config"
	"github.com/iliyamo/restaurant-table-reservation/internal/utils"
)

func main() {
	jwtCfg, err := config.LoadJWT()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sub := flag.String("sub", "", "subject (customer or staff id)")
	role := flag.String("role", "CUSTOMER", "CUSTOMER or STAFF")
	email := flag.String("email", "", "e-mail claim")
	ttl := flag.Duration("ttl", jwtCfg.AccessTTL(), "token lifetime, defaults to $ACCESS_TOKEN_TTL_MIN")
	secret := flag.String("secret", jwtCfg.Secret, "signing secret, defaults to $JWT_SECRET")
	flag.Parse()

	if *sub == "" || *secret == "" {
		flag.Usage()
		os.Exit(2)
	}
	tok, err := utils.NewAccessToken(*secret, *sub, *role, *email, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
}
