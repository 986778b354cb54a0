package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"GuardianAngel/internal/alerts"
	"GuardianAngel/internal/app"
	"GuardianAngel/internal/models"
	"GuardianAngel/internal/profile"
	"GuardianAngel/internal/responder"
	"GuardianAngel/internal/session"
	"GuardianAngel/pkg/config"
	"GuardianAngel/pkg/logger"
)

const usage = `guardian <command> [flags]

session:   login signup logout whoami switch-identity
alerts:    panic manual alerts delete-alert
responder: assigned ack resolve cancel register-responder responder-profile
data:      contacts add-contact delete-contact locations add-location delete-location
           nearby hospitals profile update-profile
other:     watch (METRICS_ADDR exports /metrics while watching)`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	// 1. 加载配置
	if err := config.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	cfg := config.GlobalConfig

	// 2. 初始化日志
	if err := logger.Init(cfg.Log); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	// 3. 组装客户端并恢复会话
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "startup:", err)
		os.Exit(1)
	}

	// 4. 执行子命令
	err = run(ctx, a, os.Args[1], os.Args[2:])
	_ = a.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", a.Message(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	switch cmd {
	case "login":
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		role := fs.String("role", "Patient", "Patient|Respondent")
		_ = fs.Parse(args)
		user, err := a.Session.Login(ctx, *email, *password, models.Role(*role))
		if err != nil {
			return err
		}
		fmt.Printf("Signed in as %s (%s)\n", user.Email, user.Role)
		return nil

	case "signup":
		email := fs.String("email", "", "account email")
		name := fs.String("name", "", "full name")
		phone := fs.String("phone", "", "phone number")
		password := fs.String("password", "", "at least 8 characters")
		_ = fs.Parse(args)
		user, err := a.Session.Signup(ctx, *email, *name, *phone, *password, models.RoleUser)
		if err != nil {
			return err
		}
		fmt.Printf("Welcome %s\n", user.FullName)
		return nil

	case "logout":
		a.Session.Logout()
		fmt.Println("Signed out")
		return nil

	case "whoami":
		st := a.Session.State()
		if !st.IsAuthenticated {
			fmt.Println("Not signed in")
			return nil
		}
		fmt.Printf("%s <%s> role=%s acting=%s screen=%s\n",
			st.CurrentUser.FullName, st.CurrentUser.Email, st.Role(), st.Acting, a.Navigator.Screen())
		if exp, ok := session.ExpiresAt(st.AuthToken); ok {
			fmt.Printf("token expires %s\n", exp.Local().Format(time.RFC1123))
		}
		return nil

	case "switch-identity":
		to := fs.String("to", "user", "user|responder")
		_ = fs.Parse(args)
		if err := a.Session.SwitchIdentity(session.IdentityKind(*to)); err != nil {
			return err
		}
		fmt.Println("Acting as", a.Session.State().Acting)
		return nil

	case "panic":
		fix := fixFlags(fs)
		_ = fs.Parse(args)
		res, err := a.Alerts.SendPanicAlert(ctx, fix())
		if err != nil {
			return err
		}
		printCreation(a, res)
		return nil

	case "manual":
		hospital := fs.String("hospital", "", "hospital id")
		fix := fixFlags(fs)
		_ = fs.Parse(args)
		res, err := a.Alerts.SendManualRequest(ctx, *hospital, fix())
		if err != nil {
			return err
		}
		printCreation(a, res)
		return nil

	case "alerts":
		if err := a.Incidents.Refresh(ctx); err != nil {
			return err
		}
		for _, al := range a.Incidents.Alerts() {
			fmt.Printf("%s  %-12s %-6s %s  %s\n", al.ID, al.Status, al.Type, al.CreatedAt.Local().Format("2006-01-02 15:04"), al.Location.DisplayAddress())
		}
		return nil

	case "delete-alert":
		id := fs.String("id", "", "alert id")
		_ = fs.Parse(args)
		if err := a.Incidents.Refresh(ctx); err != nil {
			return err
		}
		return a.Incidents.Delete(ctx, *id)

	case "assigned":
		filter := fs.String("status", "all", "all|active|acknowledged|resolved|cancelled")
		typ := fs.String("type", "all", "all|panic|manual")
		oldest := fs.Bool("oldest-first", false, "sort oldest first")
		_ = fs.Parse(args)
		if err := a.Dashboard.Refresh(ctx); err != nil {
			return err
		}
		a.Dashboard.SetFilter(alerts.Filter(*filter))
		a.Dashboard.SetTypeFilter(alerts.TypeFilter(*typ))
		a.Dashboard.SetSortNewestFirst(!*oldest)
		s := a.Dashboard.Stats()
		fmt.Printf("total=%d active=%d acknowledged=%d resolved=%d cancelled=%d\n", s.Total, s.Active, s.Acknowledged, s.Resolved, s.Cancelled)
		for _, al := range a.Dashboard.Visible() {
			fmt.Printf("%s  %-12s %-6s %s  %s\n", al.ID, al.Status, al.Type, al.CreatedAt.Local().Format("2006-01-02 15:04"), al.Location.DisplayAddress())
		}
		return nil

	case "ack", "resolve", "cancel":
		id := fs.String("id", "", "alert id")
		reason := fs.String("reason", "", "cancellation reason")
		_ = fs.Parse(args)
		var err error
		switch cmd {
		case "ack":
			err = a.Dashboard.Acknowledge(ctx, *id)
		case "resolve":
			err = a.Dashboard.Resolve(ctx, *id)
		default:
			err = a.Dashboard.Cancel(ctx, *id, *reason)
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", *id, cmd)
		return nil

	case "register-responder":
		form := responder.Form{Availability: responder.NewAvailability()}
		fs.StringVar(&form.Hospital, "hospital", "", "hospital id or name")
		certs := fs.String("certifications", "", "comma separated")
		fs.IntVar(&form.ExperienceYears, "experience", 0, "years of experience")
		fs.StringVar(&form.VehicleType, "vehicle", "car", strings.Join(models.VehicleTypes, "|"))
		fs.StringVar(&form.LicenseNumber, "license", "", "license number")
		fs.IntVar(&form.MaxDistance, "max-distance", responder.DefaultMaxDistance, "km")
		fs.StringVar(&form.Bio, "bio", "", "short bio")
		fs.Float64Var(&form.Latitude, "lat", 0, "latitude")
		fs.Float64Var(&form.Longitude, "lng", 0, "longitude")
		from := fs.Int("from", 8, "daily availability start hour")
		to := fs.Int("to", 18, "daily availability end hour")
		_ = fs.Parse(args)
		form.Certifications = profile.ParseList(*certs)
		for d := time.Sunday; d <= time.Saturday; d++ {
			if err := form.Availability.SetRange(d, *from, *to); err != nil {
				return err
			}
		}
		res, err := a.Responder.Register(ctx, form.Request())
		if err != nil {
			return err
		}
		fmt.Printf("Registered responder %s, now acting as %s\n", res.ID, a.Session.State().Acting)
		return nil

	case "responder-profile":
		p, err := a.Responder.Profile(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s  %s  success=%.0f%%  rating=%.1f\n", p.ID, p.Status, p.VehicleType, p.SuccessRate(), p.Rating)
		return nil

	case "contacts":
		if err := a.Contacts.Refresh(ctx); err != nil {
			return err
		}
		for _, c := range a.Contacts.Contacts() {
			fmt.Printf("%s  %s (%s)  %s\n", c.ID, c.Name, c.Relationship, c.Phone)
		}
		return nil

	case "add-contact":
		var in models.ContactInput
		fs.StringVar(&in.Name, "name", "", "name")
		fs.StringVar(&in.Phone, "phone", "", "phone")
		fs.StringVar(&in.Relationship, "relationship", "", "relationship")
		_ = fs.Parse(args)
		return a.Contacts.Add(ctx, in)

	case "delete-contact":
		id := fs.String("id", "", "contact id")
		_ = fs.Parse(args)
		return a.Contacts.Delete(ctx, *id)

	case "locations":
		if err := a.Locations.Refresh(ctx); err != nil {
			return err
		}
		for _, l := range a.Locations.Locations() {
			tag := ""
			if l.IsHome {
				tag = " [home]"
			} else if l.IsWork {
				tag = " [work]"
			}
			fmt.Printf("%s  %s%s  %s\n", l.ID, l.Name, tag, l.Address)
		}
		return nil

	case "add-location":
		var in models.TrustedLocationInput
		fs.StringVar(&in.Name, "name", "", "name")
		fs.StringVar(&in.Address, "address", "", "street address")
		fs.BoolVar(&in.IsHome, "home", false, "mark as home")
		fs.BoolVar(&in.IsWork, "work", false, "mark as work")
		notes := fs.String("notes", "", "notes")
		_ = fs.Parse(args)
		if *notes != "" {
			in.Notes = notes
		}
		return a.Locations.Add(ctx, in)

	case "delete-location":
		id := fs.String("id", "", "location id")
		_ = fs.Parse(args)
		return a.Locations.Delete(ctx, *id)

	case "nearby":
		fix := fixFlags(fs)
		_ = fs.Parse(args)
		res, err := a.Facilities.Nearby(ctx, fix())
		if err != nil {
			return err
		}
		for _, f := range res.Facilities {
			fmt.Printf("%-8s %-30s responders=%d eta=%s\n", f.FormattedDistance, f.Name, f.AvailableResponders, f.EstimatedArrival)
		}
		return nil

	case "hospitals":
		list, err := a.Facilities.Hospitals(ctx)
		if err != nil {
			return err
		}
		for _, h := range list {
			fmt.Printf("%s  %s  %s\n", h.ID, h.Name, h.Address)
		}
		return nil

	case "profile":
		p, err := a.Profile.Get(ctx)
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(p)

	case "update-profile":
		var upd models.ProfileUpdate
		fs.StringVar(&upd.FullName, "name", "", "full name")
		fs.StringVar(&upd.Phone, "phone", "", "phone")
		blood := fs.String("blood-type", "", "blood type")
		allergies := fs.String("allergies", "", "comma separated")
		conditions := fs.String("conditions", "", "comma separated")
		_ = fs.Parse(args)
		upd.MedicalInfo.BloodType = blood
		upd.MedicalInfo.Allergies = profile.ParseList(*allergies)
		upd.MedicalInfo.Conditions = profile.ParseList(*conditions)
		_, err := a.Profile.Update(ctx, upd)
		return err

	case "watch":
		return a.Watch(ctx, func(err error) {
			if err != nil {
				fmt.Fprintln(os.Stderr, a.Message(err))
				return
			}
			if a.Session.State().Role() == models.RoleRespondent {
				s := a.Dashboard.Stats()
				fmt.Printf("%s active=%d acknowledged=%d\n", time.Now().Format("15:04:05"), s.Active, s.Acknowledged)
				return
			}
			fmt.Printf("%s alerts=%d\n", time.Now().Format("15:04:05"), len(a.Incidents.Alerts()))
		})
	}

	fmt.Fprintln(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", cmd)
}

// fixFlags 命令行传入的定位；未提供坐标视为定位不可用
func fixFlags(fs *flag.FlagSet) func() *models.LocationFix {
	lat := fs.Float64("lat", 0, "latitude")
	lng := fs.Float64("lng", 0, "longitude")
	acc := fs.Float64("accuracy", 0, "accuracy in metres")
	return func() *models.LocationFix {
		if *lat == 0 && *lng == 0 {
			return nil
		}
		return &models.LocationFix{Latitude: *lat, Longitude: *lng, Accuracy: *acc}
	}
}

func printCreation(a *app.App, res *models.CreationResult) {
	fmt.Println(a.I18n.TWithDefaultLang("PanicSent", nil))
	if res.AssignedResponder != nil {
		fmt.Println(a.I18n.TWithDefaultLang("ResponderAssigned", map[string]interface{}{
			"Name": res.AssignedResponder.Name,
			"ETA":  res.ETA(),
		}))
	}
	if addr := res.Address(); addr != "" {
		fmt.Println(addr)
	}
}
