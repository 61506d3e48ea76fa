package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/voucher-auth/internal/client/api"
)

func printUser(w io.Writer, u *api.User) {
	if u == nil {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", u.UserID)
	fmt.Fprintf(tw, "Email:\t%s\n", u.Email)
	fmt.Fprintf(tw, "Username:\t%s\n", u.Username)
	fmt.Fprintf(tw, "Role:\t%s\n", u.Role)
	fmt.Fprintf(tw, "Active:\t%t\n", u.Active)
	fmt.Fprintf(tw, "Verified:\t%t\n", u.Verified)
	fmt.Fprintf(tw, "Preferences:\t%s\n", strings.Join(u.Preferences, ", "))
	if u.LastLoginAt != nil {
		fmt.Fprintf(tw, "Last login:\t%s\n", u.LastLoginAt.Format(time.RFC3339))
	}
	tw.Flush()
}

func printUsers(w io.Writer, p *api.Page) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tUSERNAME\tROLE\tVERIFIED\tPREFERENCES")
	for _, u := range p.Users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
			u.UserID, u.Email, u.Username, u.Role, u.Verified, strings.Join(u.Preferences, ","))
	}
	tw.Flush()
	fmt.Fprintf(w, "%d of %d\n", len(p.Users), p.Total)
}
