package catalog

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := Open("sqlite", dsn, false)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func mustCreate(t *testing.T, db *gorm.DB, v any) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("Create(%T) error = %v", v, err)
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newBand(t *testing.T, db *gorm.DB, name string) *Band {
	t.Helper()
	b := &Band{Name: name}
	mustCreate(t, db, b)
	return b
}

func newAlbum(t *testing.T, db *gorm.DB, band *Band, name string, purchases uint) *Album {
	t.Helper()
	a := &Album{Name: name, BandID: band.ID, PurchaseCount: purchases}
	mustCreate(t, db, a)
	return a
}

func newSong(t *testing.T, db *gorm.DB, album *Album, name, price string, purchases uint, single bool) *Song {
	t.Helper()
	s := &Song{Name: name, AlbumID: album.ID, Price: dec(price), PurchaseCount: purchases, IsSingle: single}
	mustCreate(t, db, s)
	return s
}

func count(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	if err := db.Table(table).Count(&n).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func songNames(songs []Song) []string {
	names := make([]string, len(songs))
	for i, s := range songs {
		names[i] = s.Name
	}
	return names
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAlbumPrice(t *testing.T) {
	db := openTestDB(t)
	band := newBand(t, db, "Low")
	album := newAlbum(t, db, band, "Things We Lost", 0)

	price, err := album.Price(db)
	if err != nil {
		t.Fatal(err)
	}
	if price.Valid {
		t.Errorf("Price() of empty album = %s, want null", price.Decimal)
	}

	newSong(t, db, album, "Sunflower", "1.990", 0, false)
	newSong(t, db, album, "Dinosaur Act", "2.500", 0, true)
	newSong(t, db, album, "Closer", "0.333", 0, false)

	other := newAlbum(t, db, band, "Trust", 0)
	newSong(t, db, other, "Candy Girl", "9.999", 0, false)

	price, err = album.Price(db)
	if err != nil {
		t.Fatal(err)
	}
	if !price.Valid || !price.Decimal.Equal(dec("4.823")) {
		t.Errorf("Price() = %v, want 4.823", price)
	}
}

func TestDeleteBandCascades(t *testing.T) {
	db := openTestDB(t)
	rock := &Genre{Name: "Rock"}
	mustCreate(t, db, rock)

	band := &Band{Name: "Wire", Genres: []Genre{*rock}}
	mustCreate(t, db, band)
	mustCreate(t, db, &BandMember{FirstName: "Colin", LastName: "Newman", BandID: band.ID})
	album := &Album{Name: "Pink Flag", BandID: band.ID, Genres: []Genre{*rock}}
	mustCreate(t, db, album)
	mustCreate(t, db, &Song{Name: "Reuters", AlbumID: album.ID, Price: dec("0.990"), Genres: []Genre{*rock}})

	keep := newBand(t, db, "Magazine")
	keepAlbum := newAlbum(t, db, keep, "Real Life", 3)
	newSong(t, db, keepAlbum, "Shot by Both Sides", "1.000", 1, true)

	if err := DeleteBand(db, band.ID); err != nil {
		t.Fatalf("DeleteBand() error = %v", err)
	}

	want := map[string]int64{
		"bands":        1,
		"albums":       1,
		"songs":        1,
		"band_members": 0,
		"band_genres":  0,
		"album_genres": 0,
		"song_genres":  0,
		"genres":       1,
	}
	for table, n := range want {
		if got := count(t, db, table); got != n {
			t.Errorf("%s has %d rows, want %d", table, got, n)
		}
	}

	if err := DeleteBand(db, band.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("second DeleteBand() error = %v, want ErrRecordNotFound", err)
	}
}

func TestDeleteAlbumAndGenre(t *testing.T) {
	db := openTestDB(t)
	jazz := &Genre{Name: "Jazz"}
	mustCreate(t, db, jazz)
	band := &Band{Name: "Sun Ra Arkestra", Genres: []Genre{*jazz}}
	mustCreate(t, db, band)
	album := &Album{Name: "Lanquidity", BandID: band.ID, Genres: []Genre{*jazz}}
	mustCreate(t, db, album)
	mustCreate(t, db, &Song{Name: "Where Pathways Meet", AlbumID: album.ID, Price: dec("1.250"), Genres: []Genre{*jazz}})

	if err := DeleteAlbum(db, album.ID); err != nil {
		t.Fatalf("DeleteAlbum() error = %v", err)
	}
	if n := count(t, db, "songs"); n != 0 {
		t.Errorf("songs = %d after DeleteAlbum, want 0", n)
	}
	if n := count(t, db, "band_genres"); n != 1 {
		t.Errorf("band_genres = %d after DeleteAlbum, want 1", n)
	}

	if err := DeleteGenre(db, jazz.ID); err != nil {
		t.Fatalf("DeleteGenre() error = %v", err)
	}
	if n := count(t, db, "band_genres"); n != 0 {
		t.Errorf("band_genres = %d after DeleteGenre, want 0", n)
	}
	if n := count(t, db, "bands"); n != 1 {
		t.Errorf("bands = %d after DeleteGenre, want 1", n)
	}
}

func TestTopAlbums(t *testing.T) {
	db := openTestDB(t)
	band := newBand(t, db, "The Fall")
	counts := []uint{5, 40, 12, 0, 40, 7, 99, 3, 21, 8, 1, 60}
	for i, c := range counts {
		newAlbum(t, db, band, fmt.Sprintf("Album %d", i), c)
	}

	top, err := TopAlbums(db)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 10 {
		t.Fatalf("len(TopAlbums()) = %d, want 10", len(top))
	}
	want := []string{"Album 6", "Album 11", "Album 1", "Album 4", "Album 8", "Album 2", "Album 9", "Album 5", "Album 0", "Album 7"}
	for i, a := range top {
		if a.Name != want[i] {
			t.Errorf("TopAlbums()[%d] = %s, want %s", i, a.Name, want[i])
		}
		if i > 0 && a.PurchaseCount > top[i-1].PurchaseCount {
			t.Errorf("TopAlbums() not descending at %d", i)
		}
	}
}

func TestTopSongs(t *testing.T) {
	db := openTestDB(t)
	album := newAlbum(t, db, newBand(t, db, "Can"), "Tago Mago", 0)
	for i := 0; i < 14; i++ {
		newSong(t, db, album, fmt.Sprintf("Song %d", i), "1.000", uint(i*3%14), false)
	}

	top, err := TopSongs(db)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 10 {
		t.Fatalf("len(TopSongs()) = %d, want 10", len(top))
	}
	for i := 1; i < len(top); i++ {
		if top[i].PurchaseCount > top[i-1].PurchaseCount {
			t.Errorf("TopSongs() not descending at %d: %d > %d", i, top[i].PurchaseCount, top[i-1].PurchaseCount)
		}
	}
	if top[0].PurchaseCount != 13 {
		t.Errorf("TopSongs()[0].PurchaseCount = %d, want 13", top[0].PurchaseCount)
	}

	few := openTestDB(t)
	fewAlbum := newAlbum(t, few, newBand(t, few, "Neu!"), "Neu! 75", 0)
	newSong(t, few, fewAlbum, "Isi", "1.000", 2, false)
	if top, _ := TopSongs(few); len(top) != 1 {
		t.Errorf("len(TopSongs()) = %d, want 1", len(top))
	}
}

func TestAlbumSinglesAndFeatures(t *testing.T) {
	db := openTestDB(t)
	album := newAlbum(t, db, newBand(t, db, "Massive Attack"), "Mezzanine", 0)
	newSong(t, db, album, "Angel", "1.000", 50, true)
	newSong(t, db, album, "Teardrop Feat. Liz Fraser", "1.000", 90, true)
	newSong(t, db, album, "Black Milk FEATURING Liz", "1.000", 10, false)
	newSong(t, db, album, "feature-length dub", "1.000", 5, false)
	newSong(t, db, album, "Inertia Creeps", "1.000", 30, false)
	newSong(t, db, album, "Fea t", "1.000", 30, false)

	singles, err := album.Singles(db)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := songNames(singles), []string{"Angel", "Teardrop Feat. Liz Fraser"}; !equalStrings(got, want) {
		t.Errorf("Singles() = %v, want %v", got, want)
	}

	features, err := album.Features(db)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Teardrop Feat. Liz Fraser", "Black Milk FEATURING Liz", "feature-length dub"}
	if got := songNames(features); !equalStrings(got, want) {
		t.Errorf("Features() = %v, want %v", got, want)
	}

	top, err := album.TopSingle(db)
	if err != nil {
		t.Fatal(err)
	}
	if top == nil || top.Name != "Teardrop Feat. Liz Fraser" {
		t.Errorf("TopSingle() = %v, want Teardrop Feat. Liz Fraser", top)
	}

	empty := newAlbum(t, db, newBand(t, db, "Portishead"), "Dummy", 0)
	newSong(t, db, empty, "Roads", "1.000", 1, false)
	if top, err := empty.TopSingle(db); err != nil || top != nil {
		t.Errorf("TopSingle() = %v, %v, want nil, nil", top, err)
	}
}

func TestBandViews(t *testing.T) {
	db := openTestDB(t)
	band := newBand(t, db, "Gorillaz")
	first := newAlbum(t, db, band, "Demon Days", 0)
	second := newAlbum(t, db, band, "Plastic Beach", 0)
	newSong(t, db, first, "Feel Good Inc. feat. De La Soul", "1.290", 70, true)
	newSong(t, db, first, "DARE", "1.290", 40, true)
	newSong(t, db, second, "Stylo feat. Bobby Womack", "1.290", 90, false)
	newSong(t, db, second, "On Melancholy Hill", "1.290", 80, true)

	other := newAlbum(t, db, newBand(t, db, "Blur"), "Parklife", 0)
	newSong(t, db, other, "Girls & Boys", "1.000", 500, true)

	singles, err := band.Singles(db)
	if err != nil {
		t.Fatal(err)
	}
	if len(singles) != 3 {
		t.Errorf("len(Singles()) = %d, want 3", len(singles))
	}

	features, err := band.Features(db)
	if err != nil {
		t.Fatal(err)
	}
	if len(features) != 2 {
		t.Errorf("len(Features()) = %d, want 2", len(features))
	}

	top, err := band.TopSingle(db)
	if err != nil {
		t.Fatal(err)
	}
	if top == nil || top.Name != "On Melancholy Hill" {
		t.Errorf("TopSingle() = %v, want On Melancholy Hill", top)
	}

	feat, err := band.TopFeature(db)
	if err != nil {
		t.Fatal(err)
	}
	if feat == nil || feat.Name != "Stylo feat. Bobby Womack" {
		t.Errorf("TopFeature() = %v, want Stylo feat. Bobby Womack", feat)
	}

	mustCreate(t, db, &BandMember{FirstName: "Damon", LastName: "Albarn", BandID: band.ID})
	members, err := band.ListMembers(db)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 || members[0].String() != "Damon Albarn" {
		t.Errorf("ListMembers() = %v, want [Damon Albarn]", members)
	}

	lonely := newBand(t, db, "Nobody")
	if s, err := lonely.TopFeature(db); err != nil || s != nil {
		t.Errorf("TopFeature() = %v, %v, want nil, nil", s, err)
	}
}

func TestTopBands(t *testing.T) {
	db := openTestDB(t)
	small := newBand(t, db, "Small")
	big := newBand(t, db, "Big")
	silent := newBand(t, db, "Silent")
	shelf := newBand(t, db, "Shelf")
	newAlbum(t, db, shelf, "Unreleased", 0)

	smallAlbum := newAlbum(t, db, small, "EP", 0)
	newSong(t, db, smallAlbum, "One", "2.500", 10, false)
	newSong(t, db, smallAlbum, "Two", "0.500", 0, false)

	bigAlbum := newAlbum(t, db, big, "LP", 0)
	newSong(t, db, bigAlbum, "Hit", "1.000", 100, true)

	top, err := TopBands(db)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, r := range top {
		got = append(got, r.Band.Name)
	}
	if want := []string{"Big", "Small", "Silent", "Shelf"}; !equalStrings(got, want) {
		t.Fatalf("TopBands() = %v, want %v", got, want)
	}
	if !top[0].Revenue.Valid || !top[0].Revenue.Decimal.Equal(dec("100")) {
		t.Errorf("Big revenue = %v, want 100", top[0].Revenue)
	}
	if !top[1].Revenue.Valid || !top[1].Revenue.Decimal.Equal(dec("25")) {
		t.Errorf("Small revenue = %v, want 25", top[1].Revenue)
	}
	if top[2].Revenue.Valid || top[3].Revenue.Valid {
		t.Errorf("bands without songs have revenue %v, %v, want null", top[2].Revenue, top[3].Revenue)
	}

	rev, err := silent.Revenue(db)
	if err != nil || rev.Valid {
		t.Errorf("Revenue() = %v, %v, want null", rev, err)
	}
}

func TestTopBandsLimit(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 12; i++ {
		b := newBand(t, db, fmt.Sprintf("Band %d", i))
		a := newAlbum(t, db, b, "A", 0)
		newSong(t, db, a, "S", "1.000", uint(i), false)
	}
	top, err := TopBands(db)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 10 {
		t.Fatalf("len(TopBands()) = %d, want 10", len(top))
	}
	if top[0].Band.Name != "Band 11" {
		t.Errorf("TopBands()[0] = %s, want Band 11", top[0].Band.Name)
	}
}

func TestTopGenres(t *testing.T) {
	db := openTestDB(t)
	for _, name := range []string{"Rock", "Jazz", "Dub"} {
		mustCreate(t, db, &Genre{Name: name})
	}

	for _, by := range []GenreBy{GenreByAlbum, GenreBySong, GenreByRevenue} {
		genres, err := TopGenres(db, by)
		if err != nil {
			t.Errorf("TopGenres(%s) error = %v", by, err)
			continue
		}
		if len(genres) != 3 {
			t.Errorf("len(TopGenres(%s)) = %d, want 3", by, len(genres))
		}
	}

	for _, by := range []GenreBy{0, GenreBy(42), ParseGenreBy("popularity")} {
		if _, err := TopGenres(db, by); !errors.Is(err, ErrNotImplemented) {
			t.Errorf("TopGenres(%d) error = %v, want ErrNotImplemented", by, err)
		}
	}
	if ErrNotImplemented.Error() != "not implemented" {
		t.Errorf("ErrNotImplemented = %q", ErrNotImplemented)
	}
}

func TestParseGenreBy(t *testing.T) {
	testCases := []struct {
		in   string
		want GenreBy
	}{
		{"album", GenreByAlbum},
		{"song", GenreBySong},
		{"revenue", GenreByRevenue},
		{"Album", 0},
		{"", 0},
	}
	for _, tc := range testCases {
		if got := ParseGenreBy(tc.in); got != tc.want {
			t.Errorf("ParseGenreBy(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if GenreByRevenue.String() != "revenue" {
		t.Errorf("String() = %s, want revenue", GenreByRevenue)
	}
}

func TestSetGenresAndReverseLookups(t *testing.T) {
	db := openTestDB(t)
	rock, punk := &Genre{Name: "Rock"}, &Genre{Name: "Punk"}
	mustCreate(t, db, rock)
	mustCreate(t, db, punk)

	band := newBand(t, db, "Buzzcocks")
	album := newAlbum(t, db, band, "Another Music", 0)
	song := newSong(t, db, album, "Fast Cars", "1.000", 0, false)

	if err := SetGenres(db, band, []uint{rock.ID, punk.ID}); err != nil {
		t.Fatalf("SetGenres(band) error = %v", err)
	}
	if err := SetGenres(db, band, []uint{punk.ID}); err != nil {
		t.Fatalf("SetGenres(band) error = %v", err)
	}
	if err := SetGenres(db, album, []uint{punk.ID}); err != nil {
		t.Fatalf("SetGenres(album) error = %v", err)
	}
	if err := SetGenres(db, song, []uint{punk.ID, punk.ID}); err != nil {
		t.Fatalf("SetGenres(song) error = %v", err)
	}
	if err := SetGenres(db, song, []uint{999}); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("SetGenres(unknown) error = %v, want ErrRecordNotFound", err)
	}

	bands, err := punk.Bands(db)
	if err != nil || len(bands) != 1 {
		t.Errorf("Bands() = %v, %v, want 1 band", bands, err)
	}
	if bands, _ := rock.Bands(db); len(bands) != 0 {
		t.Errorf("rock.Bands() = %v, want none after replace", bands)
	}
	if albums, err := punk.Albums(db); err != nil || len(albums) != 1 {
		t.Errorf("Albums() = %v, %v, want 1 album", albums, err)
	}
	if songs, err := punk.Songs(db); err != nil || len(songs) != 1 {
		t.Errorf("Songs() = %v, %v, want 1 song", songs, err)
	}
}

func TestValidation(t *testing.T) {
	db := openTestDB(t)
	album := newAlbum(t, db, newBand(t, db, "Stereolab"), "Dots and Loops", 0)

	testCases := []struct {
		name  string
		song  Song
		error error
	}{
		{"negative price", Song{Name: "a", AlbumID: album.ID, Price: dec("-0.001")}, ErrInvalidPrice},
		{"too large", Song{Name: "a", AlbumID: album.ID, Price: dec("1000")}, ErrInvalidPrice},
		{"four decimals", Song{Name: "a", AlbumID: album.ID, Price: dec("1.0005")}, ErrInvalidPrice},
		{"empty name", Song{Name: " ", AlbumID: album.ID, Price: dec("1")}, ErrInvalidName},
		{"no album", Song{Name: "a", Price: dec("1")}, gorm.ErrInvalidValue},
		{"unknown album", Song{Name: "a", AlbumID: album.ID + 100, Price: dec("1")}, gorm.ErrForeignKeyViolated},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := tc.song
			if err := db.Create(&s).Error; !errors.Is(err, tc.error) {
				t.Errorf("Create() error = %v, want %v", err, tc.error)
			}
		})
	}

	long := make([]byte, 51)
	for i := range long {
		long[i] = 'x'
	}
	if err := db.Create(&Band{Name: string(long)}).Error; !errors.Is(err, ErrInvalidName) {
		t.Errorf("Create(long band name) error = %v, want ErrInvalidName", err)
	}
	if err := db.Create(&BandMember{FirstName: "Tim", LastName: "Gane", BandID: 404}).Error; !errors.Is(err, gorm.ErrForeignKeyViolated) {
		t.Errorf("Create(member of unknown band) error = %v, want ErrForeignKeyViolated", err)
	}
	if err := db.Create(&Song{Name: "ok", AlbumID: album.ID, Price: dec("999.999")}).Error; err != nil {
		t.Errorf("Create(max price) error = %v", err)
	}
}

func TestTimestamps(t *testing.T) {
	db := openTestDB(t)
	band := newBand(t, db, "Slint")
	if band.CreatedAt.IsZero() || band.ModifiedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", band.Timestamps)
	}
	created := band.CreatedAt

	band.Name = "Slint (reissue)"
	if err := db.Save(band).Error; err != nil {
		t.Fatal(err)
	}
	var reloaded Band
	if err := db.First(&reloaded, band.ID).Error; err != nil {
		t.Fatal(err)
	}
	if !reloaded.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed: %v -> %v", created, reloaded.CreatedAt)
	}
	if reloaded.ModifiedAt.Before(reloaded.CreatedAt) {
		t.Errorf("ModifiedAt %v before CreatedAt %v", reloaded.ModifiedAt, reloaded.CreatedAt)
	}
}

func TestStrings(t *testing.T) {
	if got := (BandMember{FirstName: "Kim", LastName: "Gordon"}).String(); got != "Kim Gordon" {
		t.Errorf("String() = %q", got)
	}
	if got := (Song{Name: "Teen Age Riot"}).String(); got != "Teen Age Riot" {
		t.Errorf("String() = %q", got)
	}
	if got := (Song{Price: dec("1.250"), PurchaseCount: 4}).Revenue(); !got.Equal(dec("5")) {
		t.Errorf("Revenue() = %s, want 5", got)
	}
}
