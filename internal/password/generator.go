package password

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"breachwatch/internal/common"
)

const (
	lowerSet   = "abcdefghijklmnopqrstuvwxyz"
	upperSet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitSet   = "0123456789"
	symbolSet  = "!@#$%^&*()_+-=[]{}|;:,.<>?"
	similar    = "il1IO0"
	ambiguous  = "{}[]()/\\\"'`~,;:.<>"
	hexUpper   = "0123456789ABCDEF"
	backupSize = 8
)

// Generation bounds.
const (
	MinPasskeyLength = 8
	MaxPasskeyLength = 128
	MinWords         = 3
	MaxWords         = 10
	MaxSeparatorLen  = 5
	MinPINLength     = 4
	MaxPINLength     = 12
	MinBackupCodes   = 5
	MaxBackupCodes   = 20
)

var wordList = []string{
	"apple", "banana", "cherry", "dragon", "eagle", "forest", "garden", "house",
	"island", "jungle", "knight", "lemon", "mountain", "ocean", "planet", "queen",
	"river", "sunset", "tiger", "umbrella", "village", "window", "yellow", "zebra",
	"anchor", "bridge", "castle", "diamond", "elephant", "feather", "guitar", "hammer",
	"iceberg", "jacket", "kangaroo", "lighthouse", "moonlight", "notebook", "orange", "penguin",
	"rainbow", "sailboat", "treasure", "volcano", "waterfall", "xylophone", "yacht",
}

// Options selects the passkey alphabet.
type Options struct {
	Uppercase        bool `json:"uppercase"`
	Lowercase        bool `json:"lowercase"`
	Numbers          bool `json:"numbers"`
	Symbols          bool `json:"symbols"`
	ExcludeSimilar   bool `json:"exclude_similar"`
	ExcludeAmbiguous bool `json:"exclude_ambiguous"`
}

// DefaultOptions enables every class and drops look-alike characters.
func DefaultOptions() Options {
	return Options{Uppercase: true, Lowercase: true, Numbers: true, Symbols: true, ExcludeSimilar: true}
}

func (o Options) alphabet() string {
	var b strings.Builder
	if o.Lowercase {
		b.WriteString(lowerSet)
	}
	if o.Uppercase {
		b.WriteString(upperSet)
	}
	if o.Numbers {
		b.WriteString(digitSet)
	}
	if o.Symbols {
		b.WriteString(symbolSet)
	}
	chars := b.String()
	if o.ExcludeSimilar {
		chars = strip(chars, similar)
	}
	if o.ExcludeAmbiguous {
		chars = strip(chars, ambiguous)
	}
	return chars
}

type Passkey struct {
	Passkey  string             `json:"passkey"`
	Length   int                `json:"length"`
	Strength StrengthAssessment `json:"strength"`
	Options  Options            `json:"options"`
}

type Passphrase struct {
	Passphrase string             `json:"passphrase"`
	WordCount  int                `json:"word_count"`
	Separator  string             `json:"separator"`
	Strength   StrengthAssessment `json:"strength"`
}

type PIN struct {
	PIN      string             `json:"pin"`
	Length   int                `json:"length"`
	Strength StrengthAssessment `json:"strength"`
}

type BackupCodes struct {
	Codes       []string  `json:"codes"`
	Count       int       `json:"count"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Generator produces secrets from crypto/rand.
type Generator struct {
	now func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

func (g *Generator) Passkey(length int, opts Options) (Passkey, error) {
	if length < MinPasskeyLength || length > MaxPasskeyLength {
		return Passkey{}, common.Invalid("length", fmt.Sprintf("must be between %d and %d", MinPasskeyLength, MaxPasskeyLength))
	}
	chars := opts.alphabet()
	if chars == "" {
		return Passkey{}, common.Invalid("options", "no character sets selected")
	}
	pk, err := randomString(chars, length)
	if err != nil {
		return Passkey{}, err
	}
	return Passkey{Passkey: pk, Length: length, Strength: AnalyzePasskey(pk), Options: opts}, nil
}

func (g *Generator) Passphrase(words int, separator string) (Passphrase, error) {
	if words < MinWords || words > MaxWords {
		return Passphrase{}, common.Invalid("word_count", fmt.Sprintf("must be between %d and %d", MinWords, MaxWords))
	}
	if len(separator) > MaxSeparatorLen {
		return Passphrase{}, common.Invalid("separator", fmt.Sprintf("must be at most %d characters", MaxSeparatorLen))
	}
	picked := make([]string, words)
	for i := range picked {
		n, err := randomInt(len(wordList))
		if err != nil {
			return Passphrase{}, err
		}
		picked[i] = wordList[n]
	}
	pp := strings.Join(picked, separator)
	return Passphrase{Passphrase: pp, WordCount: words, Separator: separator, Strength: AnalyzePasskey(pp)}, nil
}

func (g *Generator) PIN(length int) (PIN, error) {
	if length < MinPINLength || length > MaxPINLength {
		return PIN{}, common.Invalid("length", fmt.Sprintf("must be between %d and %d", MinPINLength, MaxPINLength))
	}
	pin, err := randomString(digitSet, length)
	if err != nil {
		return PIN{}, err
	}
	return PIN{PIN: pin, Length: length, Strength: AnalyzePasskey(pin)}, nil
}

// BackupCodes returns count codes of eight uppercase hex characters.
func (g *Generator) BackupCodes(count int) (BackupCodes, error) {
	if count < MinBackupCodes || count > MaxBackupCodes {
		return BackupCodes{}, common.Invalid("count", fmt.Sprintf("must be between %d and %d", MinBackupCodes, MaxBackupCodes))
	}
	codes := make([]string, count)
	for i := range codes {
		c, err := randomString(hexUpper, backupSize)
		if err != nil {
			return BackupCodes{}, err
		}
		codes[i] = c
	}
	return BackupCodes{Codes: codes, Count: count, GeneratedAt: g.now().UTC()}, nil
}

func randomString(chars string, n int) (string, error) {
	out := make([]byte, n)
	for i := range out {
		idx, err := randomInt(len(chars))
		if err != nil {
			return "", err
		}
		out[i] = chars[idx]
	}
	return string(out), nil
}

func randomInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("password: random source: %w", err)
	}
	return int(v.Int64()), nil
}

func strip(s, cut string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(cut, r) {
			return -1
		}
		return r
	}, s)
}
