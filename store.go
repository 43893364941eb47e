package slashkit

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

// GuildSettings is the per-guild state the manager persists
type GuildSettings struct {
	// GuildID is the ID of the guild and is used as the primary key
	GuildID string `gorm:"primarykey"`
	// DisabledCommands lists command names refused in this guild
	DisabledCommands StringArray `gorm:"type:text"`
}

// CommandRecord remembers a command the manager registered with the API.
// Records let the next sync pass prune commands whose declaration was
// removed, even across restarts. An empty GuildID marks a global command.
type CommandRecord struct {
	CommandID string `gorm:"primarykey"`
	GuildID   string
	Name      string
}

// Store persists guild settings and command records in a sqlite database
type Store struct {
	db *gorm.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&GuildSettings{}, &CommandRecord{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// GuildSettings fetches the settings row for a guild, creating it on first use
func (s *Store) GuildSettings(guildID string) (*GuildSettings, error) {
	settings := &GuildSettings{}
	err := s.db.Where(&GuildSettings{GuildID: guildID}).FirstOrCreate(settings).Error
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Store) SaveGuildSettings(settings *GuildSettings) error {
	return s.db.Save(settings).Error
}

// DeleteGuild drops everything stored for a guild
func (s *Store) DeleteGuild(guildID string) error {
	if err := s.db.Where("guild_id = ?", guildID).Delete(&GuildSettings{}).Error; err != nil {
		return err
	}
	return s.db.Where("guild_id = ?", guildID).Delete(&CommandRecord{}).Error
}

func (s *Store) SaveRecord(record *CommandRecord) error {
	return s.db.Save(record).Error
}

func (s *Store) DeleteRecord(commandID string) error {
	return s.db.Where("command_id = ?", commandID).Delete(&CommandRecord{}).Error
}

func (s *Store) Records() ([]*CommandRecord, error) {
	var records []*CommandRecord
	if err := s.db.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
