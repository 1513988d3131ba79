package config

import (
	"fmt"
	"strconv"
	"strings"

	"bitbucket.org/tastebringers/backend/db"
	"bitbucket.org/tastebringers/backend/helpers"
	"bitbucket.org/tastebringers/backend/ledger"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"
)

type Configuration struct {
	JWTSecret           string `env:"JWT_SECRET,required"`
	Port                int    `env:"PORT,default=3001"`
	Timeout             int    `env:"TIMEOUT,default=5"`
	Environment         string `env:"ENVIRONMENT,default=development"`
	LogLevel            string `env:"LOG_LEVEL,default=info"`
	AppName             string `env:"APP_NAME,default=tastebringers"`
	SettlementThreshold string `env:"SETTLEMENT_THRESHOLD,default=50"`
	CorsAllowedOrigins  string `env:"CORS_ALLOWED_ORIGINS,default=*"`
	Restaurant          restaurant
	SQL                 database
	AwsSMTP             awsSMTP
	AwsS3               awsS3
	Mail                mail
}

type restaurant struct {
	Name    string `env:"RESTAURANT_NAME,default=TASTE BRINGERS"`
	Address string `env:"RESTAURANT_ADDRESS"`
}

type database struct {
	Driver         string `env:"DATA_BASE_DRIVER,default=mysql"`
	URL            string `env:"DATA_BASE_URL,default=localhost"`
	Name           string `env:"DATA_BASE_NAME,default=tastebringers"`
	User           string `env:"DATA_BASE_USER"`
	Port           int    `env:"DATA_BASE_PORT,default=3306"`
	Password       string `env:"DATA_BASE_PASSWORD"`
	OpenConnection int    `env:"DATA_BASE_MAX_OPEN_CONNECTION,default=5"`
	SSLMode        string `env:"DATA_BASE_SSL_MODE,default=disable"`
}

type awsSMTP struct {
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT,default=587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
}

type awsS3 struct {
	S3Region     string `env:"S3_REGION,default=us-east-1"`
	S3Bucket     string `env:"S3_BUCKET"`
	S3PathTicket string `env:"S3_PATH_TICKET,default=ticket"`
}

type mail struct {
	NameFrom       string `env:"MAIL_NAME_FROM,default=Taste Bringers"`
	EmailFrom      string `env:"MAIL_EMAIL_FROM"`
	ReceiptsTo     string `env:"MAIL_RECEIPTS_TO"`
	ReceiptSubject string `env:"MAIL_RECEIPT_SUBJECT,default=Ticket"`
}

type AppContext struct {
	Config  Configuration
	SQLConn *sqlx.DB
	DB      *db.DB
	Ledger  *ledger.Ledger
	Tickets *ledger.Tickets
	AwsSMTP *gomail.Dialer
	AwsS3   *session.Session
}

func (c Configuration) Threshold() (decimal.Decimal, error) {
	threshold, err := decimal.NewFromString(c.SettlementThreshold)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "invalid SETTLEMENT_THRESHOLD %q", c.SettlementThreshold)
	}
	if threshold.IsNegative() {
		return decimal.Zero, errors.Errorf("SETTLEMENT_THRESHOLD must not be negative, got %s", threshold)
	}
	return threshold, nil
}

func (c Configuration) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CorsAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func (c Configuration) RestaurantInfo() helpers.Restaurant {
	return helpers.Restaurant{Name: c.Restaurant.Name, Address: c.Restaurant.Address}
}

// PublishReceipts is true when receipts have somewhere to go.
func (c Configuration) PublishReceipts() bool {
	return c.AwsS3.S3Bucket != "" || (c.AwsSMTP.SMTPHost != "" && c.Mail.ReceiptsTo != "")
}

// DSN builds the driver specific connection string. MySQL needs
// clientFoundRows so an UPDATE that changes nothing still reports its row.
func (conf database) DSN() (string, error) {
	switch conf.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&clientFoundRows=true", conf.User, conf.Password, conf.URL, strconv.Itoa(conf.Port), conf.Name), nil
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", conf.URL, conf.Port, conf.User, conf.Password, conf.Name, conf.SSLMode), nil
	case "sqlite3":
		return conf.Name, nil
	}
	return "", errors.Errorf("unsupported DATA_BASE_DRIVER %q", conf.Driver)
}

func CreateConnectionSQL(conf database) (*sqlx.DB, error) {
	dsn, err := conf.DSN()
	if err != nil {
		return nil, err
	}

	if conf.Driver == "sqlite3" {
		return db.OpenSQLite(dsn)
	}

	connection, err := sqlx.Connect(conf.Driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed connecting to %s", conf.Driver)
	}
	connection.SetMaxOpenConns(conf.OpenConnection)
	return connection, nil
}

func CreateNewConnectionSMTP(conf awsSMTP) *gomail.Dialer {
	if conf.SMTPHost == "" {
		return nil
	}
	conn := gomail.NewDialer(conf.SMTPHost, conf.SMTPPort, conf.SMTPUser, conf.SMTPPassword)
	return conn
}

func CreateNewSessionS3(conf awsS3) (*session.Session, error) {
	s, err := session.NewSession(&aws.Config{Region: aws.String(conf.S3Region)})
	return s, err
}
