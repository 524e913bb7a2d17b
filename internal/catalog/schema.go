package catalog

// Filename is the catalog database file inside a catalog root.
const Filename = "database.s3db"

// DateTimeLayout is the text form of capture timestamps in the Photos table.
const DateTimeLayout = "2006-01-02 15:04:05"

var schema = []string{
	`CREATE TABLE [Photos] (
		[Id] INTEGER  PRIMARY KEY AUTOINCREMENT NOT NULL,
		[Name] VARCHAR(32)  UNIQUE NOT NULL,
		[Hash] VARCHAR(32)  NOT NULL,
		[Size] INTEGER  NOT NULL,
		[DateTime] TIMESTAMP  NOT NULL,
		[Make] VARCHAR(256)  NULL,
		[Model] VARCHAR(256)  NULL,
		[Software] VARCHAR(256)  NULL,
		[Width] INTEGER  NULL,
		[Height] INTEGER  NULL,
		[Orientation] VARCHAR(256)  NULL,
		[Latitude] FLOAT  NULL,
		[Longitude] FLOAT  NULL,
		[Altitude] FLOAT  NULL
	);`,
	`CREATE TABLE [Albums] (
		[Id] INTEGER  PRIMARY KEY AUTOINCREMENT NOT NULL,
		[Name] VARCHAR(1024)  NOT NULL,
		[PhotoId] INTEGER  NOT NULL REFERENCES [Photos]([Id])
	);`,
	`CREATE TABLE [Tags] (
		[Id] INTEGER  PRIMARY KEY AUTOINCREMENT NOT NULL,
		[Name] VARCHAR(1024)  NOT NULL,
		[PhotoId] INTEGER  NOT NULL
	);`,
	`CREATE INDEX [PhotosHashSize] ON [Photos] ([Hash], [Size]);`,
}
