package publicholiday

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/focusshift/zeiterfassung/pkg/dateutil"
	"go.uber.org/zap"
)

// allStates marks a file entry that applies to every state except None
const allStates = "*"

// FileService serves public holidays maintained in a local text file.
//
// Format, one holiday per line:
//
//	YYYY-MM-DD STATE|* name
//	2025-05-08 DE-BE Tag der Befreiung
//
// Empty lines and lines starting with # are ignored.
type FileService struct {
	filePath string
	logger   *zap.Logger

	mu       sync.RWMutex
	byState  map[FederalState][]Holiday
	wildcard []Holiday
}

// NewFileService creates a new FileService instance
func NewFileService(filePath string, logger *zap.Logger) *FileService {
	return &FileService{
		filePath: filePath,
		logger:   logger,
		byState:  make(map[FederalState][]Holiday),
	}
}

// Load loads holiday data from file
func (fs *FileService) Load() error {
	file, err := os.Open(fs.filePath)
	if err != nil {
		return fmt.Errorf("failed to open holiday file: %w", err)
	}
	defer file.Close()

	if err := fs.read(file); err != nil {
		return fmt.Errorf("error reading holiday file: %w", err)
	}
	return nil
}

func (fs *FileService) read(r io.Reader) error {
	byState := make(map[FederalState][]Holiday)
	var wildcard []Holiday
	count := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 3 {
			fs.logger.Warn("Invalid line format", zap.String("line", line))
			continue
		}

		date, err := time.Parse(dateutil.DateLayout, parts[0])
		if err != nil {
			fs.logger.Warn("Failed to parse date", zap.String("date", parts[0]), zap.Error(err))
			continue
		}
		holiday := Holiday{Date: dateutil.DateOf(date), Name: strings.Join(parts[2:], " ")}

		if parts[1] == allStates {
			wildcard = append(wildcard, holiday)
			count++
			continue
		}

		state, err := ParseFederalState(parts[1])
		if err != nil {
			fs.logger.Warn("Unknown federal state", zap.String("state", parts[1]))
			continue
		}
		byState[state] = append(byState[state], holiday)
		count++
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	fs.mu.Lock()
	fs.byState = byState
	fs.wildcard = wildcard
	fs.mu.Unlock()

	fs.logger.Info("Holiday file loaded",
		zap.String("file", fs.filePath),
		zap.Int("holidays", count))

	return nil
}

// GetPublicHolidays returns the file entries of each requested state within [from, toExclusive)
func (fs *FileService) GetPublicHolidays(_ context.Context, from, toExclusive time.Time, states []FederalState) (map[FederalState]*Calendar, error) {
	from, toExclusive = dateutil.DateOf(from), dateutil.DateOf(toExclusive)

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	result := make(map[FederalState]*Calendar, len(states))
	for _, state := range states {
		holidays := append([]Holiday(nil), fs.byState[state]...)
		if state != None {
			holidays = append(holidays, fs.wildcard...)
		}
		result[state] = NewCalendar(state, filterRange(holidays, from, toExclusive))
	}
	return result, nil
}
